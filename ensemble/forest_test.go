package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/grvsrm/sftrees/core/parallel"
)

func noisyData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 4, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := float64(i % 20)
		x1 := float64((i * 3) % 17)
		label := 0.0
		if x0+x1 > 18 {
			label = 1.0
		}
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		X.Set(i, 2, float64((i*5)%7))
		X.Set(i, 3, float64((i*11)%13))
		y.Set(i, 0, label)
	}
	return X, y
}

func TestForestFitsAndPredicts(t *testing.T) {
	X, y := noisyData(200)

	forest := NewRandomForestClassifier(
		WithNTrees(25),
		WithMinN(2),
		WithForestSeed(42),
		WithExecutor(parallel.NewExecutor(4)),
	)
	require.NoError(t, forest.Fit(X, y))

	pred, err := forest.Predict(X)
	require.NoError(t, err)

	correct := 0
	for i := 0; i < 200; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	assert.Greater(t, float64(correct)/200.0, 0.95, "forest should fit its training data well")
}

func TestForestPredictBeforeFit(t *testing.T) {
	forest := NewRandomForestClassifier()
	_, err := forest.Predict(mat.NewDense(1, 4, nil))
	assert.Error(t, err)
}

func TestForestProbaRowsSumToOne(t *testing.T) {
	X, y := noisyData(120)

	forest := NewRandomForestClassifier(WithNTrees(10), WithForestSeed(7))
	require.NoError(t, forest.Fit(X, y))

	proba, err := forest.PredictProba(X)
	require.NoError(t, err)

	rows, cols := proba.Dims()
	assert.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			p := proba.At(i, j)
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestForestDeterministicPerSeed(t *testing.T) {
	X, y := noisyData(100)

	fit := func() mat.Matrix {
		f := NewRandomForestClassifier(WithNTrees(8), WithForestSeed(123))
		require.NoError(t, f.Fit(X, y))
		proba, err := f.PredictProba(X)
		require.NoError(t, err)
		return proba
	}

	assert.True(t, mat.Equal(fit(), fit()), "same seed must reproduce the forest")
}

func TestForestOOBScoreInRange(t *testing.T) {
	X, y := noisyData(150)

	forest := NewRandomForestClassifier(WithNTrees(20), WithForestSeed(5))
	require.NoError(t, forest.Fit(X, y))

	oob := forest.OOBScore()
	assert.GreaterOrEqual(t, oob, 0.0)
	assert.LessOrEqual(t, oob, 1.0)
	assert.Greater(t, oob, 0.6, "OOB accuracy should beat chance on this data")
}

func TestForestMtryValidation(t *testing.T) {
	X, y := noisyData(50)

	forest := NewRandomForestClassifier(WithNTrees(3), WithMtry(40))
	err := forest.Fit(X, y)
	assert.Error(t, err, "mtry larger than the feature count is rejected")
}

func TestForestFeatureImportances(t *testing.T) {
	X, y := noisyData(150)

	forest := NewRandomForestClassifier(WithNTrees(15), WithForestSeed(9))
	require.NoError(t, forest.Fit(X, y))

	imps := forest.FeatureImportances()
	require.Len(t, imps, 4)

	// The two informative features carry most of the importance.
	assert.Greater(t, imps[0]+imps[1], imps[2]+imps[3])
}
