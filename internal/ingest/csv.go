// Package ingest loads tabular data into dataset records.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/avollmer/capview/internal/model"
)

// Result holds the outcome of a CSV load.
type Result struct {
	Records      []model.Record
	MeasureLabel string
	Skipped      int // rows dropped because the measure did not parse
}

// ParseCSV reads CSV data into records. Every column except the measure
// column becomes a text dimension. If measureColumn is empty the first
// column whose non-empty values are all numeric is used.
func ParseCSV(r io.Reader, measureColumn string) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rows = append(rows, row)
	}

	measureIdx, err := resolveMeasureColumn(headers, rows, measureColumn)
	if err != nil {
		return Result{}, err
	}

	result := Result{MeasureLabel: headers[measureIdx]}
	for _, row := range rows {
		if measureIdx >= len(row) {
			result.Skipped++
			continue
		}
		measure, err := strconv.ParseFloat(strings.TrimSpace(row[measureIdx]), 64)
		if err != nil {
			result.Skipped++
			continue
		}
		rec := model.Record{
			Dimensions: make(map[string]string, len(headers)-1),
			Measure:    measure,
		}
		for i, h := range headers {
			if i == measureIdx || h == "" || i >= len(row) {
				continue
			}
			rec.Dimensions[h] = strings.TrimSpace(row[i])
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

func resolveMeasureColumn(headers []string, rows [][]string, name string) (int, error) {
	if name != "" {
		for i, h := range headers {
			if strings.EqualFold(h, name) {
				return i, nil
			}
		}
		return 0, fmt.Errorf("measure column %q not found (columns: %s)", name, strings.Join(headers, ", "))
	}
	for i := range headers {
		if columnIsNumeric(rows, i) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no numeric column found; use --measure to pick one")
}

// columnIsNumeric reports whether every non-empty value in the column
// parses as a float and at least one value is present.
func columnIsNumeric(rows [][]string, col int) bool {
	seen := false
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}
