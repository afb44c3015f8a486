package preprocessing

import (
	"math/rand/v2"
	"sort"
	"strconv"
	"time"

	"github.com/grvsrm/sftrees/dataset"
	sferrors "github.com/grvsrm/sftrees/pkg/errors"
)

// OtherLevel is the pooled level that rare categories collapse into.
const OtherLevel = "other"

// RareLevelStep pools infrequent levels of a categorical column into
// OtherLevel. The threshold is a fraction of the fitted table's row count,
// so it is re-evaluated on every fit (and therefore per cross-validation
// fold).
type RareLevelStep struct {
	column    string
	threshold float64

	keep map[string]bool
}

// NewRareLevelStep creates a pooling step for one column. Levels whose
// frequency is below threshold (a fraction in (0, 1)) are pooled.
func NewRareLevelStep(column string, threshold float64) *RareLevelStep {
	return &RareLevelStep{column: column, threshold: threshold}
}

// Name implements Step.
func (s *RareLevelStep) Name() string { return "rare_levels." + s.column }

// TrainingOnly implements Step.
func (s *RareLevelStep) TrainingOnly() bool { return false }

// Fit learns which levels are frequent enough to keep.
func (s *RareLevelStep) Fit(t *dataset.Table) error {
	counts, err := t.Levels(s.column)
	if err != nil {
		return err
	}

	total := t.NumRows()
	s.keep = make(map[string]bool)
	for level, count := range counts {
		if float64(count) >= s.threshold*float64(total) {
			s.keep[level] = true
		}
	}
	return nil
}

// Apply replaces pooled and unseen levels with OtherLevel. Mapping unseen
// levels keeps the transform total on assessment folds whose levels did not
// occur in the analysis portion.
func (s *RareLevelStep) Apply(t *dataset.Table) (*dataset.Table, error) {
	if s.keep == nil {
		return nil, sferrors.NewNotFittedError("RareLevelStep", "Apply")
	}

	out := t.Clone()
	col, err := out.Column(s.column)
	if err != nil {
		return nil, err
	}
	if col.Kind != dataset.String {
		return nil, sferrors.NewValidationError("column", "not a string column", s.column)
	}

	for i, v := range col.Strs {
		if col.IsMissing(i) {
			continue
		}
		if !s.keep[v] {
			col.Strs[i] = OtherLevel
		}
	}
	return out, nil
}

// DateYearStep derives a numeric year column from a date column and removes
// the original date column. The date format is the dataset's ISO layout.
type DateYearStep struct {
	column string
	layout string

	fitted bool
}

// NewDateYearStep creates a year-extraction step for the named date column.
func NewDateYearStep(column string) *DateYearStep {
	return &DateYearStep{column: column, layout: "2006-01-02"}
}

// Name implements Step.
func (s *DateYearStep) Name() string { return "date_year." + s.column }

// TrainingOnly implements Step.
func (s *DateYearStep) TrainingOnly() bool { return false }

// Fit verifies the column exists; the extraction itself is stateless.
func (s *DateYearStep) Fit(t *dataset.Table) error {
	if !t.Has(s.column) {
		return sferrors.Wrapf(sferrors.ErrMissingColumn, "column %q", s.column)
	}
	s.fitted = true
	return nil
}

// Apply adds a "year" column parsed from the date column and drops the date.
func (s *DateYearStep) Apply(t *dataset.Table) (*dataset.Table, error) {
	if !s.fitted {
		return nil, sferrors.NewNotFittedError("DateYearStep", "Apply")
	}

	col, err := t.Column(s.column)
	if err != nil {
		return nil, err
	}
	if col.Kind != dataset.String {
		return nil, sferrors.NewValidationError("column", "not a string column", s.column)
	}

	years := make([]float64, len(col.Strs))
	for i, v := range col.Strs {
		ts, perr := time.Parse(s.layout, v)
		if perr != nil {
			return nil, sferrors.Wrapf(perr, "parsing %q in column %q", v, s.column)
		}
		years[i] = float64(ts.Year())
	}

	dropped, err := t.Drop(s.column)
	if err != nil {
		return nil, err
	}
	return dropped.Append(dataset.Column{Name: "year", Kind: dataset.Numeric, Nums: years})
}

// DownsampleStep balances classes by sampling the majority class down to the
// minority class count. It is training-only: applying it to assessment data
// would bias any metric computed there.
type DownsampleStep struct {
	target string
	seed   uint64

	fitted bool
}

// NewDownsampleStep creates a downsampling step on the target column.
func NewDownsampleStep(target string, seed uint64) *DownsampleStep {
	return &DownsampleStep{target: target, seed: seed}
}

// Name implements Step.
func (s *DownsampleStep) Name() string { return "downsample." + s.target }

// TrainingOnly implements Step.
func (s *DownsampleStep) TrainingOnly() bool { return true }

// Fit verifies the target column exists. The class counts are recomputed on
// every Apply so the step works on any training subset.
func (s *DownsampleStep) Fit(t *dataset.Table) error {
	if !t.Has(s.target) {
		return sferrors.Wrapf(sferrors.ErrMissingColumn, "column %q", s.target)
	}
	s.fitted = true
	return nil
}

// Apply returns a table where every class of the target column has exactly
// the minority class's row count. Sampling is deterministic for a given
// seed and input.
func (s *DownsampleStep) Apply(t *dataset.Table) (*dataset.Table, error) {
	if !s.fitted {
		return nil, sferrors.NewNotFittedError("DownsampleStep", "Apply")
	}

	col, err := t.Column(s.target)
	if err != nil {
		return nil, err
	}

	byClass := make(map[string][]int)
	for i := 0; i < t.NumRows(); i++ {
		var key string
		if col.Kind == dataset.String {
			key = col.Strs[i]
		} else {
			key = formatNum(col.Nums[i])
		}
		byClass[key] = append(byClass[key], i)
	}
	if len(byClass) == 0 {
		return nil, sferrors.Wrap(sferrors.ErrEmptyData, "downsample")
	}

	minCount := -1
	for _, idx := range byClass {
		if minCount < 0 || len(idx) < minCount {
			minCount = len(idx)
		}
	}

	// Deterministic class order, then seeded sampling without replacement.
	classes := make([]string, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	rng := rand.New(rand.NewPCG(s.seed, s.seed))
	keep := make([]int, 0, minCount*len(classes))
	for _, class := range classes {
		idx := byClass[class]
		if len(idx) > minCount {
			shuffled := make([]int, len(idx))
			copy(shuffled, idx)
			rng.Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})
			idx = shuffled[:minCount]
		}
		sorted := make([]int, len(idx))
		copy(sorted, idx)
		sort.Ints(sorted)
		keep = append(keep, sorted...)
	}

	return t.SelectRows(keep), nil
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
