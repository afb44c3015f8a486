package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// separableData builds a dataset where class is decided by the first feature.
func separableData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		label := 0.0
		x0 := float64(i % 10)
		if x0 >= 5 {
			label = 1.0
		}
		X.Set(i, 0, x0)
		X.Set(i, 1, float64(i%3))
		X.Set(i, 2, float64((i*7)%11))
		y.Set(i, 0, label)
	}
	return X, y
}

func TestClassifierFitsSeparableData(t *testing.T) {
	X, y := separableData(100)

	clf := NewClassifier()
	require.NoError(t, clf.Fit(X, y))

	pred, err := clf.Predict(X)
	require.NoError(t, err)

	correct := 0
	for i := 0; i < 100; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	assert.Equal(t, 100, correct, "tree should perfectly fit separable data")

	assert.Equal(t, []int{0, 1}, clf.Classes())
}

func TestPredictBeforeFit(t *testing.T) {
	clf := NewClassifier()
	_, err := clf.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestPredictProbaRowsSumToOne(t *testing.T) {
	X, y := separableData(60)

	clf := NewClassifier(WithMinSamplesLeaf(5))
	require.NoError(t, clf.Fit(X, y))

	probas, err := clf.PredictProba(X)
	require.NoError(t, err)

	rows, cols := probas.Dims()
	assert.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			p := probas.At(i, j)
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestMinSamplesLeafLimitsGrowth(t *testing.T) {
	X, y := separableData(100)

	deep := NewClassifier(WithMinSamplesLeaf(1))
	require.NoError(t, deep.Fit(X, y))

	shallow := NewClassifier(WithMinSamplesLeaf(40))
	require.NoError(t, shallow.Fit(X, y))

	assert.LessOrEqual(t, shallow.Depth(), deep.Depth())
}

func TestMaxFeaturesIsDeterministicPerSeed(t *testing.T) {
	X, y := separableData(80)

	a := NewClassifier(WithMaxFeatures(1), WithSeed(7))
	b := NewClassifier(WithMaxFeatures(1), WithSeed(7))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	predA, err := a.Predict(X)
	require.NoError(t, err)
	predB, err := b.Predict(X)
	require.NoError(t, err)

	assert.True(t, mat.Equal(predA, predB))
}

func TestFeatureImportancesNormalized(t *testing.T) {
	X, y := separableData(100)

	clf := NewClassifier()
	require.NoError(t, clf.Fit(X, y))

	imps := clf.FeatureImportances()
	require.Len(t, imps, 3)

	sum := 0.0
	for _, imp := range imps {
		assert.GreaterOrEqual(t, imp, 0.0)
		sum += imp
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, imps[0], imps[1], "the separating feature dominates")
}

func TestFitDimensionErrors(t *testing.T) {
	clf := NewClassifier()

	err := clf.Fit(mat.NewDense(3, 2, nil), mat.NewDense(2, 1, nil))
	assert.Error(t, err)

	err = clf.Fit(mat.NewDense(3, 2, nil), mat.NewDense(3, 2, nil))
	assert.Error(t, err, "y must be a column vector")
}
