package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAccuracy(t *testing.T) {
	yTrue := mat.NewVecDense(5, []float64{0, 1, 1, 0, 1})
	yPred := mat.NewVecDense(5, []float64{0, 1, 0, 0, 1})

	acc, err := Accuracy(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, acc, 1e-12)
}

func TestAccuracyErrors(t *testing.T) {
	y := mat.NewVecDense(3, []float64{0, 1, 0})

	_, err := Accuracy(nil, y)
	assert.Error(t, err)

	_, err = Accuracy(y, mat.NewVecDense(2, []float64{0, 1}))
	assert.Error(t, err)
}

func TestROCAUCKnownValue(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	yScore := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})

	auc, err := ROCAUC(yTrue, yScore)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, auc, 1e-12)
}

func TestROCAUCPerfectAndInverted(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})

	perfect := mat.NewVecDense(4, []float64{0.1, 0.2, 0.8, 0.9})
	auc, err := ROCAUC(yTrue, perfect)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, auc, 1e-12)

	inverted := mat.NewVecDense(4, []float64{0.9, 0.8, 0.2, 0.1})
	auc, err = ROCAUC(yTrue, inverted)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, auc, 1e-12)
}

func TestROCAUCSingleClass(t *testing.T) {
	yTrue := mat.NewVecDense(3, []float64{1, 1, 1})
	yScore := mat.NewVecDense(3, []float64{0.2, 0.5, 0.9})

	auc, err := ROCAUC(yTrue, yScore)
	require.NoError(t, err)
	assert.Equal(t, 0.5, auc)
}

func TestROCAUCRejectsNonBinaryLabels(t *testing.T) {
	yTrue := mat.NewVecDense(3, []float64{0, 2, 1})
	yScore := mat.NewVecDense(3, []float64{0.2, 0.5, 0.9})

	_, err := ROCAUC(yTrue, yScore)
	assert.Error(t, err)
}

func TestConfusion(t *testing.T) {
	yTrue := mat.NewVecDense(6, []float64{1, 1, 0, 0, 1, 0})
	yPred := mat.NewVecDense(6, []float64{1, 0, 0, 1, 1, 0})

	c, err := Confusion(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, ConfusionCounts{TP: 2, FP: 1, TN: 2, FN: 1}, c)
}
