package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/grvsrm/sftrees/pkg/errors"
)

// missingTokens are the cell values treated as missing during ingestion.
var missingTokens = map[string]bool{
	"":   true,
	"NA": true,
}

// ReadCSV parses CSV data with a header row into a Table, inferring column
// types: a column is numeric when every non-missing cell parses as a float,
// otherwise it stays categorical.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv has no header")
	}

	header := records[0]
	rows := records[1:]

	for i, row := range rows {
		if len(row) != len(header) {
			return nil, errors.NewDimensionError("ReadCSV", len(header), len(row), i+1)
		}
	}

	cols := make([]Column, len(header))
	for j, name := range header {
		raw := make([]string, len(rows))
		numeric := true
		for i, row := range rows {
			raw[i] = row[j]
			if missingTokens[row[j]] {
				continue
			}
			if _, perr := strconv.ParseFloat(row[j], 64); perr != nil {
				numeric = false
			}
		}

		if numeric {
			nums := make([]float64, len(raw))
			for i, s := range raw {
				if missingTokens[s] {
					nums[i] = math.NaN()
					continue
				}
				nums[i], _ = strconv.ParseFloat(s, 64)
			}
			cols[j] = Column{Name: name, Kind: Numeric, Nums: nums}
			continue
		}

		strs := make([]string, len(raw))
		for i, s := range raw {
			if missingTokens[s] {
				strs[i] = ""
				continue
			}
			strs[i] = s
		}
		cols[j] = Column{Name: name, Kind: String, Strs: strs}
	}

	return New(cols...)
}

// Fetch downloads a CSV resource over HTTP(S) and parses it into a Table.
// Any network, status, or parse failure is returned as-is; the caller decides
// whether to abort (the pipeline treats it as fatal, with no retries).
func Fetch(ctx context.Context, url string) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Newf("fetching %s: unexpected status %s", url, resp.Status)
	}

	t, err := ReadCSV(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", url)
	}
	return t, nil
}
