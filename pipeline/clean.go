package pipeline

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/grvsrm/sftrees/dataset"
	sferrors "github.com/grvsrm/sftrees/pkg/errors"
	"github.com/grvsrm/sftrees/pkg/log"
)

// firstNumber matches the leading numeric part of strings like "Width 3"
// or "10x10".
var firstNumber = regexp.MustCompile(`[-+]?\d*\.?\d+`)

// Clean derives the binary maintenance label, parses the plot-size text to a
// number, removes identifier columns, and drops every row that still has a
// missing value. The returned table satisfies the modeling invariants: the
// target has exactly two levels and no cell is missing.
func Clean(raw *dataset.Table, cfg Config, logger log.Logger) (*dataset.Table, error) {
	t := raw.Clone()

	target, err := t.Column(cfg.Target)
	if err != nil {
		return nil, err
	}
	if target.Kind != dataset.String {
		return nil, sferrors.NewValueError("Clean", "target column must be a string column")
	}
	for i := range target.Strs {
		if target.Strs[i] == "" {
			continue
		}
		if target.Strs[i] != cfg.Positive {
			target.Strs[i] = cfg.Collapsed
		}
	}

	if cfg.SizeColumn != "" {
		if err := parseSizeColumn(t, cfg.SizeColumn); err != nil {
			return nil, err
		}
	}

	for _, name := range cfg.DropColumns {
		if !t.Has(name) {
			continue
		}
		t, err = t.Drop(name)
		if err != nil {
			return nil, err
		}
	}

	clean, dropped := t.DropMissing()
	if clean.NumRows() == 0 {
		return nil, sferrors.Wrap(sferrors.ErrEmptyData, "no complete rows after cleaning")
	}

	balance, err := clean.Levels(cfg.Target)
	if err != nil {
		return nil, err
	}
	fields := []any{
		log.OperationKey, "Clean",
		log.SamplesKey, clean.NumRows(),
		log.DroppedRowsKey, dropped,
	}
	for level, n := range balance {
		fields = append(fields, "class."+level, n)
	}
	logger.Info("cleaned dataset", fields...)

	return clean, nil
}

// parseSizeColumn converts a text size column such as "Width 3" into a
// numeric column in place. Cells without a number become missing.
func parseSizeColumn(t *dataset.Table, name string) error {
	c, err := t.Column(name)
	if err != nil {
		return err
	}
	if c.Kind == dataset.Numeric {
		return nil
	}

	nums := make([]float64, len(c.Strs))
	for i, s := range c.Strs {
		nums[i] = parseNumber(s)
	}
	c.Kind = dataset.Numeric
	c.Nums = nums
	c.Strs = nil
	return nil
}

// parseNumber extracts the first number embedded in s, NaN if none.
func parseNumber(s string) float64 {
	match := firstNumber.FindString(s)
	if match == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ColumnSummary is one row of the per-column dataset overview.
type ColumnSummary struct {
	Name     string
	Kind     dataset.ColumnKind
	Missing  int
	Distinct int
	Mean     float64
}

// Summarize computes a per-column overview: missing-cell count, level
// cardinality for string columns, and the mean of numeric columns.
func Summarize(t *dataset.Table) []ColumnSummary {
	out := make([]ColumnSummary, 0, t.NumCols())
	for _, c := range t.Columns() {
		s := ColumnSummary{Name: c.Name, Kind: c.Kind, Mean: math.NaN()}
		for i := 0; i < c.Len(); i++ {
			if c.IsMissing(i) {
				s.Missing++
			}
		}
		if c.Kind == dataset.String {
			levels := make(map[string]struct{})
			for i, v := range c.Strs {
				if !c.IsMissing(i) {
					levels[v] = struct{}{}
				}
			}
			s.Distinct = len(levels)
		} else {
			sum, n := 0.0, 0
			for i, v := range c.Nums {
				if !c.IsMissing(i) {
					sum += v
					n++
				}
			}
			if n > 0 {
				s.Mean = sum / float64(n)
			}
		}
		out = append(out, s)
	}
	return out
}

// FormatSummary renders column summaries as an aligned text table.
func FormatSummary(summaries []ColumnSummary) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "column\ttype\tmissing\tdistinct\tmean")
	for _, s := range summaries {
		kind := "numeric"
		detail := fmt.Sprintf("%.3f", s.Mean)
		if s.Kind == dataset.String {
			kind = "string"
			detail = ""
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", s.Name, kind, s.Missing, s.Distinct, detail)
	}
	_ = w.Flush()
	return sb.String()
}

// TopLevels returns the most frequent levels of a string column in
// descending count order, truncated to n entries.
func TopLevels(t *dataset.Table, column string, n int) ([]string, []int, error) {
	levels, err := t.Levels(column)
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, 0, len(levels))
	for level := range levels {
		names = append(names, level)
	}
	sort.Slice(names, func(i, j int) bool {
		if levels[names[i]] != levels[names[j]] {
			return levels[names[i]] > levels[names[j]]
		}
		return names[i] < names[j]
	})
	if n > 0 && len(names) > n {
		names = names[:n]
	}
	counts := make([]int, len(names))
	for i, name := range names {
		counts[i] = levels[name]
	}
	return names, counts, nil
}
