package pipeline

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/plot"

	"github.com/grvsrm/sftrees/core/model"
	"github.com/grvsrm/sftrees/core/parallel"
	"github.com/grvsrm/sftrees/dataset"
	"github.com/grvsrm/sftrees/ensemble"
	"github.com/grvsrm/sftrees/modelselection"
	sferrors "github.com/grvsrm/sftrees/pkg/errors"
	"github.com/grvsrm/sftrees/pkg/log"
	"github.com/grvsrm/sftrees/preprocessing"
	"github.com/grvsrm/sftrees/visualize"
)

// Analysis wires the pipeline stages together under one config.
type Analysis struct {
	cfg      Config
	logger   log.Logger
	executor *parallel.Executor
}

// New creates an analysis runner. A nil logger gets a zerolog console logger.
func New(cfg Config, logger log.Logger) *Analysis {
	if logger == nil {
		logger = log.NewZerologProvider(log.LevelInfo).GetLoggerWithName("pipeline")
	}
	return &Analysis{
		cfg:      cfg,
		logger:   logger,
		executor: parallel.NewExecutor(cfg.Workers),
	}
}

// Result carries everything the run produced.
type Result struct {
	RawRows     int
	CleanRows   int
	DroppedRows int
	TrainRows   int
	TestRows    int

	CoarseResults []modelselection.CandidateResult
	GridResults   []modelselection.CandidateResult
	Best          modelselection.CandidateResult

	Test     modelselection.Scores
	OOBScore float64

	FeatureNames []string
	Importances  []float64

	PlotPaths []string
}

// Run fetches the dataset and executes the full analysis.
func (a *Analysis) Run(ctx context.Context) (*Result, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	a.logger.Info("fetching dataset", "url", a.cfg.URL)
	raw, err := dataset.Fetch(ctx, a.cfg.URL)
	if err != nil {
		return nil, sferrors.Wrap(err, "fetch dataset")
	}
	return a.RunTable(raw)
}

// RunTable executes the analysis on an already loaded raw table. Tests feed
// it a bundled sample so the pipeline runs without the network.
func (a *Analysis) RunTable(raw *dataset.Table) (*Result, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	res := &Result{RawRows: raw.NumRows()}

	clean, err := Clean(raw, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	res.CleanRows = clean.NumRows()
	res.DroppedRows = res.RawRows - res.CleanRows

	if err := a.plotEDA(clean, res); err != nil {
		return nil, err
	}

	split, err := modelselection.TrainTestSplit(clean, a.cfg.Target, a.cfg.TrainProportion, a.cfg.SplitSeed)
	if err != nil {
		return nil, err
	}
	res.TrainRows = split.Train.NumRows()
	res.TestRows = split.Test.NumRows()
	a.logger.Info("split dataset",
		"train_rows", res.TrainRows,
		"test_rows", res.TestRows,
	)

	newRecipe := a.recipeFactory()
	newModel := a.modelFactory(a.cfg.Trees, parallel.NewExecutor(1))

	tuner := modelselection.NewTuner(
		modelselection.NewStratifiedKFold(a.cfg.Folds, a.cfg.FoldSeed),
		a.executor,
		a.logger,
	)

	nPredictors, err := a.countPredictors(split.Train, newRecipe)
	if err != nil {
		return nil, err
	}
	a.logger.Info("prepared predictors", log.FeaturesKey, nPredictors)

	coarse, err := modelselection.RandomGrid(
		a.cfg.CoarseCandidates,
		modelselection.DefaultBounds(nPredictors),
		a.cfg.SampleSeed,
	)
	if err != nil {
		return nil, err
	}
	res.CoarseResults, err = tuner.Tune(split.Train, a.cfg.Target, a.cfg.Positive, newRecipe, newModel, coarse)
	if err != nil {
		return nil, err
	}
	a.logTuning("coarse search finished", res.CoarseResults)

	grid, err := modelselection.RegularGrid(a.cfg.GridBounds, a.cfg.GridLevels)
	if err != nil {
		return nil, err
	}
	res.GridResults, err = tuner.Tune(split.Train, a.cfg.Target, a.cfg.Positive, newRecipe, newModel, grid)
	if err != nil {
		return nil, err
	}
	a.logTuning("regular grid finished", res.GridResults)

	res.Best, err = modelselection.SelectBest(res.GridResults, modelselection.MetricROCAUC)
	if err != nil {
		return nil, err
	}
	a.logger.Info("selected best candidate",
		log.MtryKey, res.Best.Candidate.Mtry,
		log.MinNKey, res.Best.Candidate.MinN,
		log.ROCAUCKey, res.Best.MeanROCAUC,
	)

	if err := a.finalFit(split, newRecipe, res); err != nil {
		return nil, err
	}

	if err := a.plotResults(res); err != nil {
		return nil, err
	}

	a.logger.Info("analysis finished",
		log.AccuracyKey, res.Test.Accuracy,
		log.ROCAUCKey, res.Test.ROCAUC,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// finalFit refits the best candidate on the whole training split and scores
// it once on the untouched test split.
func (a *Analysis) finalFit(split *modelselection.Split, newRecipe modelselection.RecipeFactory, res *Result) error {
	recipe := newRecipe()
	if err := recipe.Fit(split.Train); err != nil {
		return err
	}
	fitTable, err := recipe.BakeTraining(split.Train)
	if err != nil {
		return err
	}
	testTable, err := recipe.Bake(split.Test)
	if err != nil {
		return err
	}

	X, names, err := modelselection.FeatureMatrix(fitTable, a.cfg.Target)
	if err != nil {
		return err
	}
	y, err := modelselection.LabelVector(fitTable, a.cfg.Target, a.cfg.Positive)
	if err != nil {
		return err
	}

	forest := ensemble.NewRandomForestClassifier(
		ensemble.WithNTrees(a.cfg.Trees),
		ensemble.WithMtry(res.Best.Candidate.Mtry),
		ensemble.WithMinN(res.Best.Candidate.MinN),
		ensemble.WithForestSeed(a.cfg.SampleSeed),
		ensemble.WithExecutor(a.executor),
	)
	if err := forest.Fit(X, y); err != nil {
		return sferrors.Wrap(err, "final fit")
	}

	testX, err := testTable.Matrix(names)
	if err != nil {
		return err
	}
	testY, err := modelselection.LabelVector(testTable, a.cfg.Target, a.cfg.Positive)
	if err != nil {
		return err
	}
	res.Test, err = modelselection.Evaluate(forest, testX, testY)
	if err != nil {
		return err
	}

	res.FeatureNames = names
	res.Importances = forest.FeatureImportances()
	res.OOBScore = forest.OOBScore()
	return nil
}

// recipeFactory builds the preprocessing recipe from the config: rare-level
// pooling per threshold, year extraction from the planting date, one-hot
// encoding of the categorical predictors, and training-only downsampling.
func (a *Analysis) recipeFactory() modelselection.RecipeFactory {
	pooled := make([]string, 0, len(a.cfg.RareThresholds))
	for column := range a.cfg.RareThresholds {
		pooled = append(pooled, column)
	}
	sort.Strings(pooled)

	return func() *preprocessing.Recipe {
		steps := make([]preprocessing.Step, 0, len(pooled)+3)
		for _, column := range pooled {
			steps = append(steps, preprocessing.NewRareLevelStep(column, a.cfg.RareThresholds[column]))
		}
		if a.cfg.DateColumn != "" {
			steps = append(steps, preprocessing.NewDateYearStep(a.cfg.DateColumn))
		}
		steps = append(steps,
			preprocessing.NewOneHotStep(pooled...),
			preprocessing.NewDownsampleStep(a.cfg.Target, a.cfg.SampleSeed),
		)
		return preprocessing.NewRecipe(steps...)
	}
}

// modelFactory builds forests for tuning cells. Cells already run in
// parallel, so each forest fits its trees on a single worker.
func (a *Analysis) modelFactory(trees int, executor *parallel.Executor) modelselection.ModelFactory {
	return func(c modelselection.Candidate) model.Classifier {
		return ensemble.NewRandomForestClassifier(
			ensemble.WithNTrees(trees),
			ensemble.WithMtry(c.Mtry),
			ensemble.WithMinN(c.MinN),
			ensemble.WithForestSeed(a.cfg.SampleSeed),
			ensemble.WithExecutor(executor),
		)
	}
}

// countPredictors fits a throwaway recipe on train to measure the encoded
// feature count, which bounds the coarse random search.
func (a *Analysis) countPredictors(train *dataset.Table, newRecipe modelselection.RecipeFactory) (int, error) {
	recipe := newRecipe()
	if err := recipe.Fit(train); err != nil {
		return 0, err
	}
	baked, err := recipe.Bake(train)
	if err != nil {
		return 0, err
	}
	_, names, err := modelselection.FeatureMatrix(baked, a.cfg.Target)
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

func (a *Analysis) logTuning(msg string, results []modelselection.CandidateResult) {
	best, err := modelselection.SelectBest(results, modelselection.MetricROCAUC)
	if err != nil {
		a.logger.Warn(msg, err)
		return
	}
	a.logger.Info(msg,
		log.CandidateKey, len(results),
		log.MtryKey, best.Candidate.Mtry,
		log.MinNKey, best.Candidate.MinN,
		log.AccuracyKey, best.MeanAccuracy,
		log.ROCAUCKey, best.MeanROCAUC,
	)
}

// plotEDA renders the pre-modeling charts when an output directory is set.
func (a *Analysis) plotEDA(clean *dataset.Table, res *Result) error {
	if a.cfg.OutputDir == "" {
		return nil
	}

	if clean.Has("longitude") && clean.Has("latitude") {
		p, err := visualize.ClassScatter(clean, "longitude", "latitude", a.cfg.Target, "Tree locations")
		if err != nil {
			return err
		}
		if err := a.savePlot(p, "tree_locations.png", res); err != nil {
			return err
		}
	}

	if clean.Has("caretaker") {
		p, err := visualize.CategoryBars(clean, "caretaker", "Trees per caretaker", 10)
		if err != nil {
			return err
		}
		if err := a.savePlot(p, "caretakers.png", res); err != nil {
			return err
		}
	}
	return nil
}

// plotResults renders the tuning curves and feature importances.
func (a *Analysis) plotResults(res *Result) error {
	if a.cfg.OutputDir == "" {
		return nil
	}

	p, err := visualize.TuningCurves(res.GridResults, modelselection.MetricROCAUC)
	if err != nil {
		return err
	}
	if err := a.savePlot(p, "tuning_roc_auc.png", res); err != nil {
		return err
	}

	p, err = visualize.ImportanceBars(res.FeatureNames, res.Importances, 15)
	if err != nil {
		return err
	}
	return a.savePlot(p, "importance.png", res)
}

func (a *Analysis) savePlot(p *plot.Plot, name string, res *Result) error {
	path := filepath.Join(a.cfg.OutputDir, name)
	if err := visualize.SavePNG(p, path); err != nil {
		return err
	}
	res.PlotPaths = append(res.PlotPaths, path)
	return nil
}
