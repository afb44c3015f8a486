package modelselection

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/grvsrm/sftrees/core/model"
	"github.com/grvsrm/sftrees/core/parallel"
	"github.com/grvsrm/sftrees/dataset"
	sferrors "github.com/grvsrm/sftrees/pkg/errors"
	"github.com/grvsrm/sftrees/pkg/log"
	"github.com/grvsrm/sftrees/preprocessing"
)

// Metric names accepted by SelectBest.
const (
	MetricAccuracy = "accuracy"
	MetricROCAUC   = "roc_auc"
)

// RecipeFactory builds a fresh, unfitted recipe. The tuner fits one per
// (fold, candidate) cell so that every fold learns its own thresholds and
// encoding vocabulary from its analysis portion only.
type RecipeFactory func() *preprocessing.Recipe

// ModelFactory instantiates a classifier for a hyperparameter candidate.
type ModelFactory func(c Candidate) model.Classifier

// FoldScore is the outcome of evaluating one candidate on one fold.
// A failed cell carries its error and is excluded from aggregation.
type FoldScore struct {
	Fold     int
	Accuracy float64
	ROCAUC   float64
	Err      error
}

// CandidateResult aggregates a candidate's fold scores.
type CandidateResult struct {
	Candidate Candidate

	FoldScores   []FoldScore
	MeanAccuracy float64
	MeanROCAUC   float64

	// Folds that completed without error.
	Successes int
}

// Tuner runs cross-validated hyperparameter search: every (fold, candidate)
// cell fits the recipe on the fold's analysis portion, bakes both portions,
// fits the model, and scores accuracy and ROC-AUC on the assessment portion.
// Cells are independent and run on the executor.
type Tuner struct {
	Folds    *StratifiedKFold
	Executor *parallel.Executor
	Logger   log.Logger
}

// NewTuner creates a tuner with the given fold plan. A nil executor runs
// with one worker per CPU; a nil logger is replaced by a zerolog logger.
func NewTuner(folds *StratifiedKFold, executor *parallel.Executor, logger log.Logger) *Tuner {
	if executor == nil {
		executor = parallel.NewExecutor(0)
	}
	if logger == nil {
		logger = log.NewZerologProvider(log.LevelInfo).GetLoggerWithName("Tuner")
	}
	return &Tuner{Folds: folds, Executor: executor, Logger: logger}
}

// Tune evaluates every candidate on every fold of train, stratified on the
// target column, treating positive as the positive class. A single cell's
// failure does not abort the grid: the cell is recorded with its error and
// the candidate's means are taken over its remaining folds.
func (tn *Tuner) Tune(
	train *dataset.Table,
	target, positive string,
	newRecipe RecipeFactory,
	newModel ModelFactory,
	grid []Candidate,
) ([]CandidateResult, error) {
	if len(grid) == 0 {
		return nil, sferrors.NewValueError("Tune", "empty hyperparameter grid")
	}

	folds, err := tn.Folds.Split(train, target)
	if err != nil {
		return nil, err
	}

	nFolds := len(folds)
	results := make([]CandidateResult, len(grid))
	for i, c := range grid {
		results[i] = CandidateResult{
			Candidate:  c,
			FoldScores: make([]FoldScore, nFolds),
		}
	}

	// One cell per (candidate, fold) pair; all cells are independent.
	cells := len(grid) * nFolds
	tn.Executor.Run(cells, func(cell int) {
		ci := cell / nFolds
		fi := cell % nFolds

		score := tn.evaluateCell(train, target, positive, folds[fi], grid[ci], newRecipe, newModel)
		score.Fold = fi
		results[ci].FoldScores[fi] = score

		if score.Err != nil {
			tn.Logger.Warn("tuning cell failed",
				score.Err,
				log.CandidateKey, ci,
				log.FoldKey, fi,
				log.MtryKey, grid[ci].Mtry,
				log.MinNKey, grid[ci].MinN,
			)
			return
		}
		tn.Logger.Debug("tuning cell evaluated",
			log.CandidateKey, ci,
			log.FoldKey, fi,
			log.MtryKey, grid[ci].Mtry,
			log.MinNKey, grid[ci].MinN,
			log.AccuracyKey, score.Accuracy,
			log.ROCAUCKey, score.ROCAUC,
		)
	})

	for i := range results {
		aggregate(&results[i])
	}

	return results, nil
}

func (tn *Tuner) evaluateCell(
	train *dataset.Table,
	target, positive string,
	fold Fold,
	c Candidate,
	newRecipe RecipeFactory,
	newModel ModelFactory,
) FoldScore {
	var score FoldScore

	analysis := train.SelectRows(fold.Analysis)
	assessment := train.SelectRows(fold.Assessment)

	recipe := newRecipe()
	if err := recipe.Fit(analysis); err != nil {
		score.Err = err
		return score
	}

	fitTable, err := recipe.BakeTraining(analysis)
	if err != nil {
		score.Err = err
		return score
	}
	// Assessment data must not be downsampled.
	evalTable, err := recipe.Bake(assessment)
	if err != nil {
		score.Err = err
		return score
	}

	fitX, names, err := FeatureMatrix(fitTable, target)
	if err != nil {
		score.Err = err
		return score
	}
	fitY, err := LabelVector(fitTable, target, positive)
	if err != nil {
		score.Err = err
		return score
	}

	clf := newModel(c)
	if err := clf.Fit(fitX, columnVector(fitY)); err != nil {
		score.Err = err
		return score
	}

	evalX, err := evalTable.Matrix(names)
	if err != nil {
		score.Err = err
		return score
	}
	evalY, err := LabelVector(evalTable, target, positive)
	if err != nil {
		score.Err = err
		return score
	}

	acc, auc, err := scoreClassifier(clf, evalX, evalY, positiveColumn(clf))
	if err != nil {
		score.Err = err
		return score
	}

	score.Accuracy = acc
	score.ROCAUC = auc
	return score
}

func aggregate(r *CandidateResult) {
	sumAcc, sumAUC := 0.0, 0.0
	for _, fs := range r.FoldScores {
		if fs.Err != nil {
			continue
		}
		r.Successes++
		sumAcc += fs.Accuracy
		sumAUC += fs.ROCAUC
	}
	if r.Successes > 0 {
		r.MeanAccuracy = sumAcc / float64(r.Successes)
		r.MeanROCAUC = sumAUC / float64(r.Successes)
	} else {
		r.MeanAccuracy = math.NaN()
		r.MeanROCAUC = math.NaN()
	}
}

// SelectBest returns the candidate with the highest mean of the given
// metric. Ties break toward the first candidate in grid order, which keeps
// selection deterministic. Candidates with no successful fold are skipped.
func SelectBest(results []CandidateResult, metric string) (CandidateResult, error) {
	bestIdx := -1
	bestVal := math.Inf(-1)

	for i, r := range results {
		if r.Successes == 0 {
			continue
		}
		var v float64
		switch metric {
		case MetricAccuracy:
			v = r.MeanAccuracy
		case MetricROCAUC:
			v = r.MeanROCAUC
		default:
			return CandidateResult{}, sferrors.NewValidationError("metric", "unknown metric", metric)
		}
		if v > bestVal {
			bestVal = v
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return CandidateResult{}, sferrors.NewModelError("SelectBest", "no candidate succeeded on any fold", nil)
	}
	return results[bestIdx], nil
}

// FeatureMatrix assembles every numeric column except the target into a
// matrix, returning the column names used so that other tables can be
// aligned to the same layout.
func FeatureMatrix(t *dataset.Table, target string) (*mat.Dense, []string, error) {
	names := make([]string, 0, t.NumCols())
	for _, c := range t.Columns() {
		if c.Name == target || c.Kind != dataset.Numeric {
			continue
		}
		names = append(names, c.Name)
	}
	if len(names) == 0 {
		return nil, nil, sferrors.Wrap(sferrors.ErrEmptyData, "no predictor columns")
	}
	m, err := t.Matrix(names)
	return m, names, err
}

// LabelVector encodes the target column as 1 for the positive class and 0
// otherwise.
func LabelVector(t *dataset.Table, target, positive string) (*mat.VecDense, error) {
	col, err := t.Column(target)
	if err != nil {
		return nil, err
	}
	if col.Kind != dataset.String {
		return nil, sferrors.NewValidationError("target", "not a string column", target)
	}

	v := mat.NewVecDense(t.NumRows(), nil)
	for i, s := range col.Strs {
		if s == positive {
			v.SetVec(i, 1)
		}
	}
	return v, nil
}

// positiveColumn locates the probability column for label 1 in a fitted
// classifier's class order.
func positiveColumn(clf model.Classifier) int {
	type classer interface{ Classes() []int }
	if c, ok := clf.(classer); ok {
		for i, label := range c.Classes() {
			if label == 1 {
				return i
			}
		}
	}
	// Binary labels sorted ascending put the positive class last.
	return 1
}

func columnVector(v *mat.VecDense) *mat.Dense {
	out := mat.NewDense(v.Len(), 1, nil)
	for i := 0; i < v.Len(); i++ {
		out.Set(i, 0, v.AtVec(i))
	}
	return out
}
