// Package modelselection provides data partitioning (stratified train/test
// split, k-fold plans), hyperparameter grids, and the cross-validated tuner
// for the trees pipeline.
package modelselection

import (
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/grvsrm/sftrees/dataset"
	sferrors "github.com/grvsrm/sftrees/pkg/errors"
)

// Split holds the result of a train/test partition.
type Split struct {
	Train *dataset.Table
	Test  *dataset.Table
}

// TrainTestSplit partitions a table into disjoint train and test subsets,
// stratified on the given column so each subset preserves the full table's
// class proportions. The same seed always produces the same split.
//
// trainProp is the fraction of rows assigned to the training set; the
// default analysis uses 0.75.
func TrainTestSplit(t *dataset.Table, stratify string, trainProp float64, seed uint64) (*Split, error) {
	if trainProp <= 0 || trainProp >= 1 {
		return nil, sferrors.NewValidationError("trainProp", "must be in (0, 1)", trainProp)
	}
	if t.NumRows() == 0 {
		return nil, sferrors.Wrap(sferrors.ErrEmptyData, "TrainTestSplit")
	}

	groups, err := groupByLevel(t, stratify)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(seed, seed))

	var trainIdx, testIdx []int
	for _, g := range groups {
		indices := make([]int, len(g.rows))
		copy(indices, g.rows)
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		nTrain := int(trainProp * float64(len(indices)))
		trainIdx = append(trainIdx, indices[:nTrain]...)
		testIdx = append(testIdx, indices[nTrain:]...)
	}

	sort.Ints(trainIdx)
	sort.Ints(testIdx)

	return &Split{
		Train: t.SelectRows(trainIdx),
		Test:  t.SelectRows(testIdx),
	}, nil
}

type levelGroup struct {
	level string
	rows  []int
}

// groupByLevel collects row indices per level of a column, in sorted level
// order so that iteration is deterministic.
func groupByLevel(t *dataset.Table, column string) ([]levelGroup, error) {
	col, err := t.Column(column)
	if err != nil {
		return nil, err
	}

	byLevel := make(map[string][]int)
	for i := 0; i < t.NumRows(); i++ {
		var key string
		if col.Kind == dataset.String {
			key = col.Strs[i]
		} else {
			key = strconv.FormatFloat(col.Nums[i], 'g', -1, 64)
		}
		byLevel[key] = append(byLevel[key], i)
	}

	levels := make([]string, 0, len(byLevel))
	for level := range byLevel {
		levels = append(levels, level)
	}
	sort.Strings(levels)

	groups := make([]levelGroup, len(levels))
	for i, level := range levels {
		groups[i] = levelGroup{level: level, rows: byLevel[level]}
	}
	return groups, nil
}
