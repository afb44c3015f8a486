package modelselection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grvsrm/sftrees/core/model"
	"github.com/grvsrm/sftrees/core/parallel"
	"github.com/grvsrm/sftrees/dataset"
	"github.com/grvsrm/sftrees/ensemble"
	"github.com/grvsrm/sftrees/pkg/log"
	"github.com/grvsrm/sftrees/preprocessing"
)

// tuningTable builds a dataset where the positive class has clearly higher
// x1 values, so any sensible candidate scores well above chance.
func tuningTable(t *testing.T, n int) *dataset.Table {
	t.Helper()
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		x2[i] = float64((i * 13) % 17)
		if i%3 == 0 {
			labels[i] = "DPW Maintained"
			x1[i] = 10 + float64(i%7)
		} else {
			labels[i] = "Other"
			x1[i] = float64(i % 7)
		}
	}
	tbl, err := dataset.New(
		dataset.Column{Name: "x1", Kind: dataset.Numeric, Nums: x1},
		dataset.Column{Name: "x2", Kind: dataset.Numeric, Nums: x2},
		dataset.Column{Name: "legal_status", Kind: dataset.String, Strs: labels},
	)
	require.NoError(t, err)
	return tbl
}

func testFactories() (RecipeFactory, ModelFactory) {
	newRecipe := func() *preprocessing.Recipe {
		return preprocessing.NewRecipe(
			preprocessing.NewDownsampleStep("legal_status", 123),
		)
	}
	newModel := func(c Candidate) model.Classifier {
		return ensemble.NewRandomForestClassifier(
			ensemble.WithNTrees(10),
			ensemble.WithMtry(c.Mtry),
			ensemble.WithMinN(c.MinN),
			ensemble.WithForestSeed(42),
		)
	}
	return newRecipe, newModel
}

func TestTunerEvaluatesGrid(t *testing.T) {
	tbl := tuningTable(t, 120)
	newRecipe, newModel := testFactories()

	tuner := NewTuner(
		NewStratifiedKFold(3, 7),
		parallel.NewExecutor(2),
		log.NewTestLogger(log.LevelWarn),
	)

	grid := []Candidate{
		{Mtry: 1, MinN: 2},
		{Mtry: 2, MinN: 2},
		{Mtry: 2, MinN: 10},
	}

	results, err := tuner.Tune(tbl, "legal_status", "DPW Maintained", newRecipe, newModel, grid)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, r := range results {
		assert.Equal(t, 3, r.Successes)
		assert.False(t, math.IsNaN(r.MeanAccuracy))
		assert.GreaterOrEqual(t, r.MeanAccuracy, 0.0)
		assert.LessOrEqual(t, r.MeanAccuracy, 1.0)
		assert.GreaterOrEqual(t, r.MeanROCAUC, 0.0)
		assert.LessOrEqual(t, r.MeanROCAUC, 1.0)
		// The x1 feature separates classes well.
		assert.Greater(t, r.MeanROCAUC, 0.7)
	}
}

func TestTunerFailSoft(t *testing.T) {
	tbl := tuningTable(t, 90)
	newRecipe, newModel := testFactories()

	logger := log.NewTestLogger(log.LevelWarn)
	tuner := NewTuner(NewStratifiedKFold(3, 7), parallel.NewExecutor(1), logger)

	// mtry 50 exceeds the feature count, so every fold of that candidate
	// fails; the other candidate must still be evaluated.
	grid := []Candidate{
		{Mtry: 50, MinN: 2},
		{Mtry: 1, MinN: 2},
	}

	results, err := tuner.Tune(tbl, "legal_status", "DPW Maintained", newRecipe, newModel, grid)
	require.NoError(t, err, "one candidate's failure must not abort the grid")

	assert.Equal(t, 0, results[0].Successes)
	assert.True(t, math.IsNaN(results[0].MeanROCAUC))
	assert.Equal(t, 3, results[1].Successes)

	assert.True(t, logger.Contains("tuning cell failed"))

	best, err := SelectBest(results, MetricROCAUC)
	require.NoError(t, err)
	assert.Equal(t, 1, best.Candidate.Mtry, "failed candidates are excluded from selection")
}

func TestTunerRegularGridProperty(t *testing.T) {
	tbl := tuningTable(t, 90)
	newRecipe, newModel := testFactories()

	tuner := NewTuner(NewStratifiedKFold(3, 7), nil, log.NewTestLogger(log.LevelError))

	grid, err := RegularGrid(Bounds{MtryMin: 1, MtryMax: 2, MinNMin: 2, MinNMax: 10}, 5)
	require.NoError(t, err)

	results, err := tuner.Tune(tbl, "legal_status", "DPW Maintained", newRecipe, newModel, grid)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(results), 25)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.MeanAccuracy, 0.0)
		assert.LessOrEqual(t, r.MeanAccuracy, 1.0)
		assert.GreaterOrEqual(t, r.MeanROCAUC, 0.0)
		assert.LessOrEqual(t, r.MeanROCAUC, 1.0)
	}
}

func TestSelectBestTieBreaksFirst(t *testing.T) {
	results := []CandidateResult{
		{Candidate: Candidate{Mtry: 1, MinN: 2}, MeanROCAUC: 0.9, Successes: 3},
		{Candidate: Candidate{Mtry: 2, MinN: 2}, MeanROCAUC: 0.9, Successes: 3},
		{Candidate: Candidate{Mtry: 3, MinN: 2}, MeanROCAUC: 0.8, Successes: 3},
	}

	best, err := SelectBest(results, MetricROCAUC)
	require.NoError(t, err)
	assert.Equal(t, 1, best.Candidate.Mtry, "ties resolve to the first candidate in grid order")
}

func TestSelectBestErrors(t *testing.T) {
	_, err := SelectBest([]CandidateResult{{Successes: 0}}, MetricROCAUC)
	assert.Error(t, err)

	_, err = SelectBest([]CandidateResult{{Successes: 1}}, "f1")
	assert.Error(t, err)
}

func TestTunerEmptyGrid(t *testing.T) {
	tbl := tuningTable(t, 60)
	newRecipe, newModel := testFactories()

	tuner := NewTuner(NewStratifiedKFold(3, 7), nil, log.NewTestLogger(log.LevelError))
	_, err := tuner.Tune(tbl, "legal_status", "DPW Maintained", newRecipe, newModel, nil)
	assert.Error(t, err)
}
