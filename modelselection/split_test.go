package modelselection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grvsrm/sftrees/dataset"
)

// labeledTable builds a table with nPos positive and nNeg negative rows and
// one informative numeric feature.
func labeledTable(t *testing.T, nPos, nNeg int) *dataset.Table {
	t.Helper()
	n := nPos + nNeg
	labels := make([]string, n)
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < nPos {
			labels[i] = "DPW Maintained"
			x[i] = float64(i%10) + 10
		} else {
			labels[i] = "Other"
			x[i] = float64(i % 10)
		}
	}
	tbl, err := dataset.New(
		dataset.Column{Name: "x", Kind: dataset.Numeric, Nums: x},
		dataset.Column{Name: "legal_status", Kind: dataset.String, Strs: labels},
	)
	require.NoError(t, err)
	return tbl
}

func classProportion(t *testing.T, tbl *dataset.Table, level string) float64 {
	t.Helper()
	levels, err := tbl.Levels("legal_status")
	require.NoError(t, err)
	return float64(levels[level]) / float64(tbl.NumRows())
}

func TestTrainTestSplitStratification(t *testing.T) {
	tbl := labeledTable(t, 200, 600)

	split, err := TrainTestSplit(tbl, "legal_status", 0.75, 123)
	require.NoError(t, err)

	assert.Equal(t, tbl.NumRows(), split.Train.NumRows()+split.Test.NumRows())

	full := classProportion(t, tbl, "DPW Maintained")
	train := classProportion(t, split.Train, "DPW Maintained")
	test := classProportion(t, split.Test, "DPW Maintained")

	assert.Less(t, math.Abs(train-full), 0.02)
	assert.Less(t, math.Abs(test-full), 0.02)
}

func TestTrainTestSplitDisjoint(t *testing.T) {
	tbl := labeledTable(t, 50, 150)

	// Tag rows with a unique id to verify disjointness after selection.
	ids := make([]float64, tbl.NumRows())
	for i := range ids {
		ids[i] = float64(i)
	}
	tagged, err := tbl.Append(dataset.Column{Name: "row_id", Kind: dataset.Numeric, Nums: ids})
	require.NoError(t, err)

	split, err := TrainTestSplit(tagged, "legal_status", 0.75, 42)
	require.NoError(t, err)

	seen := make(map[float64]bool)
	trainIDs, err := split.Train.Column("row_id")
	require.NoError(t, err)
	for _, id := range trainIDs.Nums {
		seen[id] = true
	}
	testIDs, err := split.Test.Column("row_id")
	require.NoError(t, err)
	for _, id := range testIDs.Nums {
		assert.False(t, seen[id], "row %v in both train and test", id)
	}
}

func TestTrainTestSplitDeterministic(t *testing.T) {
	tbl := labeledTable(t, 80, 240)

	a, err := TrainTestSplit(tbl, "legal_status", 0.75, 123)
	require.NoError(t, err)
	b, err := TrainTestSplit(tbl, "legal_status", 0.75, 123)
	require.NoError(t, err)

	assert.Equal(t, a.Train.NumRows(), b.Train.NumRows())

	xa, err := a.Train.Column("x")
	require.NoError(t, err)
	xb, err := b.Train.Column("x")
	require.NoError(t, err)
	assert.Equal(t, xa.Nums, xb.Nums)
}

func TestTrainTestSplitValidation(t *testing.T) {
	tbl := labeledTable(t, 10, 10)

	_, err := TrainTestSplit(tbl, "legal_status", 1.5, 1)
	assert.Error(t, err)

	_, err = TrainTestSplit(tbl, "no_such", 0.75, 1)
	assert.Error(t, err)
}

func TestStratifiedKFoldCoverage(t *testing.T) {
	tbl := labeledTable(t, 40, 60)

	skf := NewStratifiedKFold(5, 7)
	folds, err := skf.Split(tbl, "legal_status")
	require.NoError(t, err)
	require.Len(t, folds, 5)

	counts := make(map[int]int)
	for _, fold := range folds {
		assert.Equal(t, tbl.NumRows(), len(fold.Analysis)+len(fold.Assessment))

		inAssessment := make(map[int]bool)
		for _, idx := range fold.Assessment {
			counts[idx]++
			inAssessment[idx] = true
		}
		for _, idx := range fold.Analysis {
			assert.False(t, inAssessment[idx])
		}

		// Stratification: each assessment fold holds ~40% positives.
		pos := 0
		sub := tbl.SelectRows(fold.Assessment)
		levels, lerr := sub.Levels("legal_status")
		require.NoError(t, lerr)
		pos = levels["DPW Maintained"]
		assert.Equal(t, 8, pos)
	}

	// Every row appears in exactly one assessment set.
	for i := 0; i < tbl.NumRows(); i++ {
		assert.Equal(t, 1, counts[i], "row %d", i)
	}
}

func TestStratifiedKFoldDefaultsToFive(t *testing.T) {
	skf := NewStratifiedKFold(1, 0)
	assert.Equal(t, 5, skf.NSplits)
}
