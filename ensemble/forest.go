// Package ensemble implements a random-forest classifier: bagged decision
// trees with per-split feature subsampling and out-of-bag aggregation.
package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/grvsrm/sftrees/core/model"
	"github.com/grvsrm/sftrees/core/parallel"
	sferrors "github.com/grvsrm/sftrees/pkg/errors"
	"github.com/grvsrm/sftrees/tree"
)

// RandomForestClassifier trains NTrees decision trees on bootstrap samples,
// each considering Mtry random features per split, and aggregates their
// votes. The two free hyperparameters of the pipeline, mtry and min_n, map
// to Mtry and MinN; the tree count stays fixed during tuning.
type RandomForestClassifier struct {
	state *model.StateManager

	// Hyperparameters
	nTrees int    // Number of trees in the forest
	mtry   int    // Features sampled per split (0 = floor(sqrt(p)))
	minN   int    // Minimum samples per leaf
	seed   uint64 // Base seed; per-tree seeds are derived from it

	executor *parallel.Executor

	// Fitted state
	trees     []*tree.Classifier
	inBag     [][]bool // Per tree: whether each training row was sampled
	classes   []int
	nFeatures int
	oobScore  float64

	// Training data dims retained for OOB scoring
	nSamples int
}

// ForestOption is a functional option for RandomForestClassifier.
type ForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier creates a forest with the given options.
// Defaults: 1000 trees, mtry = floor(sqrt(p)), min_n = 1, serial execution.
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	f := &RandomForestClassifier{
		state:  model.NewStateManager(),
		nTrees: 1000,
		mtry:   0,
		minN:   1,
		seed:   1,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.executor == nil {
		f.executor = parallel.NewExecutor(0)
	}

	return f
}

// WithNTrees sets the number of trees.
func WithNTrees(n int) ForestOption {
	return func(f *RandomForestClassifier) {
		if n > 0 {
			f.nTrees = n
		}
	}
}

// WithMtry sets the number of predictors sampled per split.
// Zero means floor(sqrt(number of features)).
func WithMtry(mtry int) ForestOption {
	return func(f *RandomForestClassifier) {
		f.mtry = mtry
	}
}

// WithMinN sets the minimum node size.
func WithMinN(minN int) ForestOption {
	return func(f *RandomForestClassifier) {
		if minN > 0 {
			f.minN = minN
		}
	}
}

// WithForestSeed sets the base random seed. Per-tree bootstrap and split
// sampling are seeded deterministically from it.
func WithForestSeed(seed uint64) ForestOption {
	return func(f *RandomForestClassifier) {
		f.seed = seed
	}
}

// WithExecutor sets the executor used to fit trees in parallel.
func WithExecutor(e *parallel.Executor) ForestOption {
	return func(f *RandomForestClassifier) {
		f.executor = e
	}
}

// Mtry returns the configured mtry (0 means floor(sqrt(p)) at fit time).
func (f *RandomForestClassifier) Mtry() int { return f.mtry }

// MinN returns the configured minimum node size.
func (f *RandomForestClassifier) MinN() int { return f.minN }

// NTrees returns the configured tree count.
func (f *RandomForestClassifier) NTrees() int { return f.nTrees }

// Fit trains the forest on features X and integer labels y (column vector).
// Trees are independent and fitted in parallel on the executor.
func (f *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 {
		return sferrors.Wrap(sferrors.ErrEmptyData, "forest.Fit")
	}
	if nSamples != yRows {
		return sferrors.NewDimensionError("forest.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return sferrors.NewDimensionError("forest.Fit", 1, yCols, 1)
	}

	mtry := f.mtry
	if mtry <= 0 {
		mtry = int(math.Floor(math.Sqrt(float64(nFeatures))))
		if mtry < 1 {
			mtry = 1
		}
	}
	if mtry > nFeatures {
		return sferrors.NewValidationError("mtry", "exceeds feature count", mtry)
	}

	f.extractClasses(y)
	f.nFeatures = nFeatures
	f.nSamples = nSamples

	f.trees = make([]*tree.Classifier, f.nTrees)
	f.inBag = make([][]bool, f.nTrees)
	errs := make([]error, f.nTrees)

	f.executor.Run(f.nTrees, func(i int) {
		// Independent deterministic stream per tree.
		treeSeed := f.seed + uint64(i)*0x9e3779b97f4a7c15
		rng := rand.New(rand.NewPCG(treeSeed, treeSeed))

		indices := make([]int, nSamples)
		bag := make([]bool, nSamples)
		for j := range indices {
			idx := rng.IntN(nSamples)
			indices[j] = idx
			bag[idx] = true
		}

		bootX, bootY := subsample(X, y, indices)

		clf := tree.NewClassifier(
			tree.WithMaxFeatures(mtry),
			tree.WithMinSamplesLeaf(f.minN),
			tree.WithSeed(treeSeed),
		)
		if err := clf.Fit(bootX, bootY); err != nil {
			errs[i] = sferrors.Wrapf(err, "fitting tree %d", i)
			return
		}

		f.trees[i] = clf
		f.inBag[i] = bag
	})

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	f.computeOOBScore(X, y)

	f.state.SetDimensions(nSamples, nFeatures)
	f.state.SetFitted()
	return nil
}

func (f *RandomForestClassifier) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	classMap := make(map[int]bool)
	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))] = true
	}

	f.classes = make([]int, 0, len(classMap))
	for class := range classMap {
		f.classes = append(f.classes, class)
	}
	sort.Ints(f.classes)
}

func (f *RandomForestClassifier) classIndex(label int) int {
	for i, class := range f.classes {
		if class == label {
			return i
		}
	}
	return -1
}

// computeOOBScore estimates generalization accuracy from out-of-bag votes.
// Rows that ended up in every bag get no vote and are skipped.
func (f *RandomForestClassifier) computeOOBScore(X, y mat.Matrix) {
	nSamples, _ := X.Dims()
	votes := make([][]int, nSamples)
	for i := range votes {
		votes[i] = make([]int, len(f.classes))
	}

	for ti, clf := range f.trees {
		pred, err := clf.Predict(X)
		if err != nil {
			continue
		}
		for i := 0; i < nSamples; i++ {
			if f.inBag[ti][i] {
				continue
			}
			if ci := f.classIndex(int(pred.At(i, 0))); ci >= 0 {
				votes[i][ci]++
			}
		}
	}

	correct, counted := 0, 0
	for i := 0; i < nSamples; i++ {
		best, bestVotes := -1, 0
		for ci, v := range votes[i] {
			if v > bestVotes {
				best, bestVotes = ci, v
			}
		}
		if best < 0 {
			continue
		}
		counted++
		if f.classes[best] == int(y.At(i, 0)) {
			correct++
		}
	}

	if counted > 0 {
		f.oobScore = float64(correct) / float64(counted)
	}
}

// OOBScore returns the out-of-bag accuracy estimate from the last Fit.
func (f *RandomForestClassifier) OOBScore() float64 {
	return f.oobScore
}

// PredictProba averages per-tree class probability estimates, one column per
// class in sorted label order.
func (f *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := f.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != f.nFeatures {
		return nil, sferrors.NewDimensionError("forest.PredictProba", f.nFeatures, nFeatures, 1)
	}

	sum := mat.NewDense(nSamples, len(f.classes), nil)
	counted := 0

	for _, clf := range f.trees {
		proba, err := clf.PredictProba(X)
		if err != nil {
			return nil, err
		}

		// A bootstrap sample can miss a class entirely; map the tree's
		// columns onto the forest's class order.
		treeClasses := clf.Classes()
		for i := 0; i < nSamples; i++ {
			for j, label := range treeClasses {
				ci := f.classIndex(label)
				if ci < 0 {
					continue
				}
				sum.Set(i, ci, sum.At(i, ci)+proba.At(i, j))
			}
		}
		counted++
	}

	if counted == 0 {
		return nil, sferrors.NewModelError("forest.PredictProba", "no fitted trees", nil)
	}

	sum.Scale(1/float64(counted), sum)
	return sum, nil
}

// Predict returns the majority-probability class for each row.
func (f *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	pred := mat.NewDense(nSamples, 1, nil)

	for i := 0; i < nSamples; i++ {
		best, bestP := 0, proba.At(i, 0)
		for j := 1; j < len(f.classes); j++ {
			if p := proba.At(i, j); p > bestP {
				best, bestP = j, p
			}
		}
		pred.Set(i, 0, float64(f.classes[best]))
	}

	return pred, nil
}

// Classes returns the sorted unique class labels seen during Fit.
func (f *RandomForestClassifier) Classes() []int {
	out := make([]int, len(f.classes))
	copy(out, f.classes)
	return out
}

// FeatureImportances returns the mean normalized impurity-decrease
// importances across all trees.
func (f *RandomForestClassifier) FeatureImportances() []float64 {
	if len(f.trees) == 0 {
		return nil
	}

	mean := make([]float64, f.nFeatures)
	for _, clf := range f.trees {
		for i, imp := range clf.FeatureImportances() {
			mean[i] += imp
		}
	}
	for i := range mean {
		mean[i] /= float64(len(f.trees))
	}
	return mean
}

func subsample(X, y mat.Matrix, indices []int) (mat.Matrix, mat.Matrix) {
	_, nFeatures := X.Dims()
	n := len(indices)

	subX := mat.NewDense(n, nFeatures, nil)
	subY := mat.NewDense(n, 1, nil)
	for i, idx := range indices {
		for j := 0; j < nFeatures; j++ {
			subX.Set(i, j, X.At(idx, j))
		}
		subY.Set(i, 0, y.At(idx, 0))
	}
	return subX, subY
}
