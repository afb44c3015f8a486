// Package tree implements a CART decision-tree classifier used as the base
// learner for the random forest. Splits minimize Gini impurity (or entropy),
// and an optional per-split feature subsample (mtry) decorrelates trees when
// the classifier is used inside an ensemble.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/grvsrm/sftrees/core/model"
	sferrors "github.com/grvsrm/sftrees/pkg/errors"
)

// Node is a node in the decision tree.
type Node struct {
	IsLeaf       bool    // Whether this is a leaf node
	Feature      int     // Feature index for split (internal nodes)
	Threshold    float64 // Threshold value for split (internal nodes)
	Left         *Node   // Left child (values <= threshold)
	Right        *Node   // Right child (values > threshold)
	ClassCounts  []int   // Class counts (leaf nodes)
	PredictClass int     // Predicted class index (leaf nodes)
	Impurity     float64 // Node impurity
	NSamples     int     // Number of samples at this node
	Depth        int     // Depth of this node in the tree
}

// Classifier is a decision tree for classification.
type Classifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion      string // Splitting criterion: "gini", "entropy"
	maxDepth       int    // Maximum depth of tree (0 = unlimited)
	minSamplesLeaf int    // Minimum samples in a leaf (min_n)
	maxFeatures    int    // Features sampled per split (0 = all; mtry)
	seed           uint64 // Random seed for feature subsampling

	rng *rand.Rand

	// Tree structure
	root      *Node
	nClasses  int
	nFeatures int
	classes   []int

	featureImportances []float64
}

// Option is a functional option for Classifier.
type Option func(*Classifier)

// NewClassifier creates a new decision tree classifier.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		state:          model.NewStateManager(),
		criterion:      "gini",
		maxDepth:       0, // Unlimited
		minSamplesLeaf: 1,
		maxFeatures:    0, // All features
		seed:           1,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithCriterion sets the splitting criterion ("gini" or "entropy").
func WithCriterion(criterion string) Option {
	return func(c *Classifier) {
		c.criterion = criterion
	}
}

// WithMaxDepth sets the maximum tree depth (0 = unlimited).
func WithMaxDepth(depth int) Option {
	return func(c *Classifier) {
		c.maxDepth = depth
	}
}

// WithMinSamplesLeaf sets the minimum samples required in a leaf. A node is
// not split further once it holds fewer than twice this many samples.
func WithMinSamplesLeaf(n int) Option {
	return func(c *Classifier) {
		c.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets the number of features considered at each split.
// Zero considers all features.
func WithMaxFeatures(n int) Option {
	return func(c *Classifier) {
		c.maxFeatures = n
	}
}

// WithSeed sets the random seed used for per-split feature subsampling.
func WithSeed(seed uint64) Option {
	return func(c *Classifier) {
		c.seed = seed
	}
}

// Fit trains the decision tree on features X and integer labels y.
func (c *Classifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 {
		return sferrors.Wrap(sferrors.ErrEmptyData, "tree.Fit")
	}
	if nSamples != yRows {
		return sferrors.NewDimensionError("tree.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return sferrors.NewDimensionError("tree.Fit", 1, yCols, 1)
	}

	c.rng = rand.New(rand.NewPCG(c.seed, c.seed))

	c.extractClasses(y)
	c.nFeatures = nFeatures
	c.featureImportances = make([]float64, nFeatures)

	// Convert labels to class indices.
	yIndices := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		label := int(y.At(i, 0))
		for j, class := range c.classes {
			if class == label {
				yIndices[i] = j
				break
			}
		}
	}

	c.root = c.buildTree(X, yIndices, 0)
	c.normalizeFeatureImportances()

	c.state.SetDimensions(nSamples, nFeatures)
	c.state.SetFitted()
	return nil
}

// Classes returns the sorted unique class labels seen during Fit.
func (c *Classifier) Classes() []int {
	out := make([]int, len(c.classes))
	copy(out, c.classes)
	return out
}

func (c *Classifier) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	classMap := make(map[int]bool)

	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))] = true
	}

	c.classes = make([]int, 0, len(classMap))
	for class := range classMap {
		c.classes = append(c.classes, class)
	}

	sort.Ints(c.classes)
	c.nClasses = len(c.classes)
}

func (c *Classifier) buildTree(X mat.Matrix, y []int, depth int) *Node {
	nSamples, _ := X.Dims()

	classCounts := make([]int, c.nClasses)
	for _, classIdx := range y {
		classCounts[classIdx]++
	}

	maxCount := 0
	predictClass := 0
	for i, count := range classCounts {
		if count > maxCount {
			maxCount = count
			predictClass = i
		}
	}

	impurity := c.calculateImpurity(classCounts)

	node := &Node{
		ClassCounts:  classCounts,
		PredictClass: predictClass,
		Impurity:     impurity,
		NSamples:     nSamples,
		Depth:        depth,
	}

	if c.shouldStop(nSamples, impurity, depth) {
		node.IsLeaf = true
		return node
	}

	bestFeature, bestThreshold, bestImpurityDecrease := c.findBestSplit(X, y, impurity)

	if bestFeature == -1 || bestImpurityDecrease <= 0 {
		node.IsLeaf = true
		return node
	}

	leftIndices, rightIndices := c.partition(X, bestFeature, bestThreshold)

	if len(leftIndices) < c.minSamplesLeaf || len(rightIndices) < c.minSamplesLeaf {
		node.IsLeaf = true
		return node
	}

	node.Feature = bestFeature
	node.Threshold = bestThreshold

	c.featureImportances[bestFeature] += bestImpurityDecrease * float64(nSamples)

	leftX, leftY := c.subset(X, y, leftIndices)
	rightX, rightY := c.subset(X, y, rightIndices)

	node.Left = c.buildTree(leftX, leftY, depth+1)
	node.Right = c.buildTree(rightX, rightY, depth+1)

	return node
}

func (c *Classifier) shouldStop(nSamples int, impurity float64, depth int) bool {
	if c.maxDepth > 0 && depth >= c.maxDepth {
		return true
	}
	if nSamples < 2*c.minSamplesLeaf {
		return true
	}
	if impurity == 0.0 {
		return true
	}
	return false
}

func (c *Classifier) calculateImpurity(classCounts []int) float64 {
	total := 0
	for _, count := range classCounts {
		total += count
	}
	if total == 0 {
		return 0.0
	}

	impurity := 0.0
	switch c.criterion {
	case "entropy":
		for _, count := range classCounts {
			if count > 0 {
				p := float64(count) / float64(total)
				impurity -= p * math.Log2(p)
			}
		}
	default: // gini
		sumSquared := 0.0
		for _, count := range classCounts {
			if count > 0 {
				p := float64(count) / float64(total)
				sumSquared += p * p
			}
		}
		impurity = 1.0 - sumSquared
	}

	return impurity
}

// candidateFeatures returns the feature indices considered for the next
// split. With maxFeatures set, a fresh random subset is drawn per split.
func (c *Classifier) candidateFeatures() []int {
	all := make([]int, c.nFeatures)
	for i := range all {
		all[i] = i
	}
	if c.maxFeatures <= 0 || c.maxFeatures >= c.nFeatures {
		return all
	}

	c.rng.Shuffle(len(all), func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})
	return all[:c.maxFeatures]
}

func (c *Classifier) findBestSplit(X mat.Matrix, y []int, parentImpurity float64) (int, float64, float64) {
	nSamples, _ := X.Dims()
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurityDecrease := 0.0

	for _, feature := range c.candidateFeatures() {
		values := make([]float64, nSamples)
		for i := 0; i < nSamples; i++ {
			values[i] = X.At(i, feature)
		}

		sortedIndices := make([]int, nSamples)
		for i := range sortedIndices {
			sortedIndices[i] = i
		}
		sort.Slice(sortedIndices, func(i, j int) bool {
			return values[sortedIndices[i]] < values[sortedIndices[j]]
		})

		// Incremental class counts while sweeping thresholds left to right.
		leftCounts := make([]int, c.nClasses)
		rightCounts := make([]int, c.nClasses)
		for _, classIdx := range y {
			rightCounts[classIdx]++
		}

		for i := 0; i < nSamples-1; i++ {
			idx := sortedIndices[i]
			leftCounts[y[idx]]++
			rightCounts[y[idx]]--

			next := sortedIndices[i+1]
			if values[idx] == values[next] {
				continue
			}

			nLeft := i + 1
			nRight := nSamples - nLeft
			if nLeft < c.minSamplesLeaf || nRight < c.minSamplesLeaf {
				continue
			}

			threshold := (values[idx] + values[next]) / 2.0

			leftImpurity := c.calculateImpurity(leftCounts)
			rightImpurity := c.calculateImpurity(rightCounts)

			weightedImpurity := (float64(nLeft)*leftImpurity + float64(nRight)*rightImpurity) / float64(nSamples)
			impurityDecrease := parentImpurity - weightedImpurity

			if impurityDecrease > bestImpurityDecrease {
				bestImpurityDecrease = impurityDecrease
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestImpurityDecrease
}

func (c *Classifier) partition(X mat.Matrix, feature int, threshold float64) ([]int, []int) {
	nSamples, _ := X.Dims()
	var leftIndices, rightIndices []int

	for i := 0; i < nSamples; i++ {
		if X.At(i, feature) <= threshold {
			leftIndices = append(leftIndices, i)
		} else {
			rightIndices = append(rightIndices, i)
		}
	}

	return leftIndices, rightIndices
}

func (c *Classifier) subset(X mat.Matrix, y []int, indices []int) (mat.Matrix, []int) {
	_, nFeatures := X.Dims()
	nSub := len(indices)

	subX := mat.NewDense(nSub, nFeatures, nil)
	subY := make([]int, nSub)
	for i, idx := range indices {
		for j := 0; j < nFeatures; j++ {
			subX.Set(i, j, X.At(idx, j))
		}
		subY[i] = y[idx]
	}

	return subX, subY
}

func (c *Classifier) normalizeFeatureImportances() {
	sum := 0.0
	for _, imp := range c.featureImportances {
		sum += imp
	}
	if sum > 0 {
		for i := range c.featureImportances {
			c.featureImportances[i] /= sum
		}
	}
}

// Predict returns hard class labels for X as a column vector.
func (c *Classifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := c.state.RequireFitted("tree.Classifier", "Predict"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != c.nFeatures {
		return nil, sferrors.NewDimensionError("tree.Predict", c.nFeatures, nFeatures, 1)
	}

	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		leaf := c.traverse(X, i)
		predictions.Set(i, 0, float64(c.classes[leaf.PredictClass]))
	}

	return predictions, nil
}

// PredictProba returns per-class probability estimates from leaf class
// counts, one column per class in sorted label order.
func (c *Classifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := c.state.RequireFitted("tree.Classifier", "PredictProba"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != c.nFeatures {
		return nil, sferrors.NewDimensionError("tree.PredictProba", c.nFeatures, nFeatures, 1)
	}

	probas := mat.NewDense(nSamples, c.nClasses, nil)
	for i := 0; i < nSamples; i++ {
		leaf := c.traverse(X, i)

		total := 0
		for _, count := range leaf.ClassCounts {
			total += count
		}
		for j := 0; j < c.nClasses; j++ {
			if total > 0 {
				probas.Set(i, j, float64(leaf.ClassCounts[j])/float64(total))
			}
		}
	}

	return probas, nil
}

func (c *Classifier) traverse(X mat.Matrix, row int) *Node {
	node := c.root
	for !node.IsLeaf {
		if X.At(row, node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// FeatureImportances returns normalized impurity-decrease importances.
func (c *Classifier) FeatureImportances() []float64 {
	if c.featureImportances == nil {
		return nil
	}
	importances := make([]float64, len(c.featureImportances))
	copy(importances, c.featureImportances)
	return importances
}

// Depth returns the depth of the fitted tree.
func (c *Classifier) Depth() int {
	if c.root == nil {
		return 0
	}
	return maxDepth(c.root)
}

func maxDepth(node *Node) int {
	if node == nil || node.IsLeaf {
		return node.Depth
	}
	left := maxDepth(node.Left)
	right := maxDepth(node.Right)
	if left > right {
		return left
	}
	return right
}
