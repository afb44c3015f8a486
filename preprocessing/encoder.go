package preprocessing

import (
	"sort"

	"github.com/grvsrm/sftrees/dataset"
	sferrors "github.com/grvsrm/sftrees/pkg/errors"
)

// OneHotStep one-hot encodes categorical columns: each string column is
// replaced by one 0/1 numeric column per learned level, named
// "<column>_<level>". The vocabulary is learned during Fit from the training
// data only and applied identically everywhere.
//
// An unseen level at apply time maps to the pooled OtherLevel column when
// present (i.e. when a RareLevelStep ran before this step), otherwise to an
// all-zero row. This keeps the transform total on assessment folds.
type OneHotStep struct {
	columns []string

	// Categories holds each column's learned levels, sorted.
	Categories map[string][]string

	// categoryToIdx maps each column's level to its dummy-column offset.
	categoryToIdx map[string]map[string]int
}

// NewOneHotStep creates a one-hot encoding step for the given columns.
func NewOneHotStep(columns ...string) *OneHotStep {
	return &OneHotStep{columns: columns}
}

// Name implements Step.
func (s *OneHotStep) Name() string { return "one_hot" }

// TrainingOnly implements Step.
func (s *OneHotStep) TrainingOnly() bool { return false }

// Fit learns the per-column level vocabulary.
func (s *OneHotStep) Fit(t *dataset.Table) (err error) {
	defer sferrors.Recover(&err, "OneHotStep.Fit")

	if t.NumRows() == 0 {
		return sferrors.Wrap(sferrors.ErrEmptyData, "OneHotStep.Fit")
	}

	s.Categories = make(map[string][]string, len(s.columns))
	s.categoryToIdx = make(map[string]map[string]int, len(s.columns))

	for _, name := range s.columns {
		counts, lerr := t.Levels(name)
		if lerr != nil {
			return lerr
		}

		levels := make([]string, 0, len(counts))
		for level := range counts {
			levels = append(levels, level)
		}
		sort.Strings(levels)

		toIdx := make(map[string]int, len(levels))
		for i, level := range levels {
			toIdx[level] = i
		}

		s.Categories[name] = levels
		s.categoryToIdx[name] = toIdx
	}

	return nil
}

// Apply replaces each encoded column with its dummy columns.
func (s *OneHotStep) Apply(t *dataset.Table) (*dataset.Table, error) {
	if s.Categories == nil {
		return nil, sferrors.NewNotFittedError("OneHotStep", "Apply")
	}

	cur := t
	for _, name := range s.columns {
		col, err := cur.Column(name)
		if err != nil {
			return nil, err
		}
		if col.Kind != dataset.String {
			return nil, sferrors.NewValidationError("column", "not a string column", name)
		}

		levels := s.Categories[name]
		toIdx := s.categoryToIdx[name]
		rows := cur.NumRows()

		dummies := make([][]float64, len(levels))
		for i := range dummies {
			dummies[i] = make([]float64, rows)
		}

		for i, v := range col.Strs {
			idx, seen := toIdx[v]
			if !seen {
				// Unseen level: fall back to the pooled level if the
				// vocabulary has one, otherwise leave the row all-zero.
				if otherIdx, hasOther := toIdx[OtherLevel]; hasOther {
					idx, seen = otherIdx, true
				}
			}
			if seen {
				dummies[idx][i] = 1
			}
		}

		cur, err = cur.Drop(name)
		if err != nil {
			return nil, err
		}
		for li, level := range levels {
			cur, err = cur.Append(dataset.Column{
				Name: name + "_" + level,
				Kind: dataset.Numeric,
				Nums: dummies[li],
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return cur, nil
}

// NumOutputs returns the total number of dummy columns the fitted step
// produces.
func (s *OneHotStep) NumOutputs() int {
	n := 0
	for _, levels := range s.Categories {
		n += len(levels)
	}
	return n
}
