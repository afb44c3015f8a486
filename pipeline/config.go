// Package pipeline runs the San Francisco street-tree analysis end to end:
// fetch, clean, split, tune a random forest with cross-validation, fit the
// best candidate, and evaluate it on the held-out test set.
package pipeline

import (
	"github.com/grvsrm/sftrees/modelselection"
	sferrors "github.com/grvsrm/sftrees/pkg/errors"
)

// DatasetURL is the public CSV the analysis was built on.
const DatasetURL = "https://raw.githubusercontent.com/rfordatascience/tidytuesday/master/data/2020/2020-01-28/sf_trees.csv"

// Config collects every knob of the analysis. All randomness flows from the
// three explicit seeds; two runs with the same config produce the same
// splits, grids, and fitted forest.
type Config struct {
	URL string

	// Target column and its binary labels after cleaning.
	Target    string
	Positive  string
	Collapsed string

	// Column handling during cleaning.
	SizeColumn  string
	DateColumn  string
	DropColumns []string

	// Rare-level pooling thresholds per categorical column.
	RareThresholds map[string]float64

	TrainProportion float64
	Folds           int

	Trees            int
	CoarseCandidates int
	GridBounds       modelselection.Bounds
	GridLevels       int

	SplitSeed  uint64
	FoldSeed   uint64
	SampleSeed uint64

	Workers int

	// Directory for PNG charts; empty disables plotting.
	OutputDir string
}

// DefaultConfig mirrors the published analysis: 3:1 stratified split with
// seed 123, species and caretaker pooled at 1%, site_info at 0.5%, 1000
// trees, a 20-candidate coarse search, then a 5x5 regular grid over
// mtry 10..40 and min_n 2..10.
func DefaultConfig() Config {
	return Config{
		URL:        DatasetURL,
		Target:     "legal_status",
		Positive:   "DPW Maintained",
		Collapsed:  "Other",
		SizeColumn: "plot_size",
		DateColumn: "date",
		// tree_id identifies a row and must not become a predictor.
		DropColumns: []string{"address", "tree_id"},
		RareThresholds: map[string]float64{
			"species":   0.01,
			"caretaker": 0.01,
			"site_info": 0.005,
		},
		TrainProportion:  0.75,
		Folds:            10,
		Trees:            1000,
		CoarseCandidates: 20,
		GridBounds:       modelselection.Bounds{MtryMin: 10, MtryMax: 40, MinNMin: 2, MinNMax: 10},
		GridLevels:       5,
		SplitSeed:        123,
		FoldSeed:         234,
		SampleSeed:       345,
	}
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	switch {
	case c.URL == "":
		return sferrors.NewValueError("Config", "dataset URL is empty")
	case c.Target == "" || c.Positive == "":
		return sferrors.NewValueError("Config", "target column and positive label are required")
	case c.TrainProportion <= 0 || c.TrainProportion >= 1:
		return sferrors.NewValueError("Config", "train proportion must be in (0, 1)")
	case c.Folds < 2:
		return sferrors.NewValueError("Config", "at least 2 cross-validation folds are required")
	case c.Trees < 1:
		return sferrors.NewValueError("Config", "tree count must be positive")
	case c.GridLevels < 2:
		return sferrors.NewValueError("Config", "grid needs at least 2 levels per dimension")
	}
	return nil
}
