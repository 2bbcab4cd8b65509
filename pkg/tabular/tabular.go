// Package tabular reads and writes the comma-separated upload and export
// formats used by the CLI and the CSV endpoint.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arnavshah/internship-allocator-go/pkg/models"
)

// RecordHeader is the column order of the exported results table
var RecordHeader = []string{"Candidate", "Internship", "Score", "Reason", "Category", "Gender", "Area", "Past Participation"}

// ReadCSV reads a header row followed by data rows into column maps.
// Header names are trimmed; a leading byte-order mark is dropped. Short
// rows leave their missing columns empty, and blank lines are skipped.
func ReadCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}

	rows := []map[string]string{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+1, err)
		}
		if blank(record) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteRecords renders the results table with RecordHeader as its first row
func WriteRecords(w io.Writer, records []models.AllocationRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(RecordHeader); err != nil {
		return err
	}
	for _, rec := range records {
		if err := writer.Write([]string{
			rec.Candidate,
			rec.Internship,
			strconv.FormatFloat(rec.Score, 'f', -1, 64),
			rec.Reason,
			rec.Category,
			rec.Gender,
			rec.Area,
			rec.PastParticipation,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Stringify converts decoded JSON cell values into the raw strings the
// normalizer expects. Lists are joined with commas; null becomes empty.
func Stringify(rows []map[string]any) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]string, len(row))
		for k, v := range row {
			m[k] = cell(v)
		}
		out = append(out, m)
	}
	return out
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, cell(e))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}
