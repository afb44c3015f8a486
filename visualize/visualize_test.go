package visualize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grvsrm/sftrees/dataset"
	"github.com/grvsrm/sftrees/modelselection"
)

func plotTable(t *testing.T) *dataset.Table {
	t.Helper()
	n := 60
	lon := make([]float64, n)
	lat := make([]float64, n)
	status := make([]string, n)
	caretaker := make([]string, n)
	for i := 0; i < n; i++ {
		lon[i] = -122.45 + float64(i)*0.001
		lat[i] = 37.75 + float64(i%10)*0.002
		if i%3 == 0 {
			status[i] = "DPW Maintained"
		} else {
			status[i] = "Other"
		}
		switch {
		case i%5 == 0:
			caretaker[i] = "Private"
		case i%5 == 1:
			caretaker[i] = "DPW"
		default:
			caretaker[i] = "SFUSD"
		}
	}
	tbl, err := dataset.New(
		dataset.Column{Name: "longitude", Kind: dataset.Numeric, Nums: lon},
		dataset.Column{Name: "latitude", Kind: dataset.Numeric, Nums: lat},
		dataset.Column{Name: "legal_status", Kind: dataset.String, Strs: status},
		dataset.Column{Name: "caretaker", Kind: dataset.String, Strs: caretaker},
	)
	require.NoError(t, err)
	return tbl
}

func requirePNG(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestClassScatter(t *testing.T) {
	tbl := plotTable(t)

	p, err := ClassScatter(tbl, "longitude", "latitude", "legal_status", "Tree locations")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "locations.png")
	require.NoError(t, SavePNG(p, path))
	requirePNG(t, path)
}

func TestClassScatterValidation(t *testing.T) {
	tbl := plotTable(t)

	_, err := ClassScatter(tbl, "caretaker", "latitude", "legal_status", "bad")
	assert.Error(t, err, "x column must be numeric")

	_, err = ClassScatter(tbl, "longitude", "latitude", "latitude", "bad")
	assert.Error(t, err, "class column must be a string column")

	_, err = ClassScatter(tbl, "missing", "latitude", "legal_status", "bad")
	assert.Error(t, err)
}

func TestCategoryBars(t *testing.T) {
	tbl := plotTable(t)

	p, err := CategoryBars(tbl, "caretaker", "Caretakers", 2)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "caretakers.png")
	require.NoError(t, SavePNG(p, path))
	requirePNG(t, path)
}

func TestTuningCurves(t *testing.T) {
	results := []modelselection.CandidateResult{
		{Candidate: modelselection.Candidate{Mtry: 10, MinN: 2}, MeanAccuracy: 0.8, MeanROCAUC: 0.85, Successes: 5},
		{Candidate: modelselection.Candidate{Mtry: 25, MinN: 2}, MeanAccuracy: 0.82, MeanROCAUC: 0.88, Successes: 5},
		{Candidate: modelselection.Candidate{Mtry: 40, MinN: 2}, MeanAccuracy: 0.81, MeanROCAUC: 0.86, Successes: 5},
		{Candidate: modelselection.Candidate{Mtry: 10, MinN: 10}, MeanAccuracy: 0.79, MeanROCAUC: 0.84, Successes: 5},
		{Candidate: modelselection.Candidate{Mtry: 40, MinN: 10}, MeanAccuracy: 0.8, MeanROCAUC: 0.85, Successes: 0},
	}

	p, err := TuningCurves(results, modelselection.MetricROCAUC)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tuning.png")
	require.NoError(t, SavePNG(p, path))
	requirePNG(t, path)

	_, err = TuningCurves(results, "f1")
	assert.Error(t, err)

	_, err = TuningCurves(nil, modelselection.MetricROCAUC)
	assert.Error(t, err)
}

func TestImportanceBars(t *testing.T) {
	names := []string{"plot_size", "year", "latitude", "longitude"}
	imp := []float64{0.1, 0.3, 0.35, 0.25}

	p, err := ImportanceBars(names, imp, 3)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "importance.png")
	require.NoError(t, SavePNG(p, path))
	requirePNG(t, path)

	_, err = ImportanceBars(names, imp[:2], 0)
	assert.Error(t, err)
}
