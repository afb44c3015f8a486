package pipeline

import (
	"math"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grvsrm/sftrees/dataset"
	"github.com/grvsrm/sftrees/pkg/log"
)

func loadSample(t *testing.T) *dataset.Table {
	t.Helper()
	f, err := os.Open("testdata/sf_trees_sample.csv")
	require.NoError(t, err)
	defer f.Close()

	tbl, err := dataset.ReadCSV(f)
	require.NoError(t, err)
	return tbl
}

func TestCleanInvariants(t *testing.T) {
	raw := loadSample(t)
	cfg := DefaultConfig()

	clean, err := Clean(raw, cfg, log.NewTestLogger(log.LevelInfo))
	require.NoError(t, err)

	assert.False(t, clean.Has("address"))
	assert.False(t, clean.Has("tree_id"))

	status, err := clean.Column(cfg.Target)
	require.NoError(t, err)
	for _, v := range status.Strs {
		assert.Contains(t, []string{cfg.Positive, cfg.Collapsed}, v)
	}

	size, err := clean.Column(cfg.SizeColumn)
	require.NoError(t, err)
	assert.Equal(t, dataset.Numeric, size.Kind)

	for i := 0; i < clean.NumRows(); i++ {
		assert.False(t, clean.RowMissing(i), "row %d still has a missing value", i)
	}
	assert.Less(t, clean.NumRows(), raw.NumRows(), "rows with missing values are dropped")
	assert.Greater(t, clean.NumRows(), 0)
}

func TestCleanLogsBalance(t *testing.T) {
	raw := loadSample(t)
	logger := log.NewTestLogger(log.LevelInfo)

	_, err := Clean(raw, DefaultConfig(), logger)
	require.NoError(t, err)
	assert.True(t, logger.Contains("cleaned dataset"))
}

func TestCleanRejectsNumericTarget(t *testing.T) {
	raw := loadSample(t)
	cfg := DefaultConfig()
	cfg.Target = "latitude"

	_, err := Clean(raw, cfg, log.NewTestLogger(log.LevelInfo))
	assert.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"Width 3", 3},
		{"3X3", 3},
		{"Width 4.5 ft", 4.5},
		{"10x10", 10},
		{"", math.NaN()},
		{"unknown", math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseNumber(tt.in)
			if math.IsNaN(tt.want) {
				assert.True(t, math.IsNaN(got))
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	raw := loadSample(t)

	summaries := Summarize(raw)
	require.Len(t, summaries, raw.NumCols())

	byName := make(map[string]ColumnSummary, len(summaries))
	for _, s := range summaries {
		byName[s.Name] = s
	}

	assert.Greater(t, byName["dbh"].Missing, 0)
	assert.Equal(t, 5, byName["species"].Distinct)
	assert.False(t, math.IsNaN(byName["latitude"].Mean))

	text := FormatSummary(summaries)
	assert.True(t, strings.Contains(text, "species"))
	assert.True(t, strings.Contains(text, "missing"))
}

func TestTopLevels(t *testing.T) {
	raw := loadSample(t)

	names, counts, err := TopLevels(raw, "caretaker", 2)
	require.NoError(t, err)
	require.Len(t, names, 2)
	require.Len(t, counts, 2)
	assert.GreaterOrEqual(t, counts[0], counts[1])

	_, _, err = TopLevels(raw, "no_such_column", 2)
	assert.Error(t, err)
}
