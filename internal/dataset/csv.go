package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Row represents a single CSV row with column name to value mapping.
type Row map[string]string

// LoadCSV reads a CSV file and returns rows as maps of column to value.
// The first row is treated as headers (column names).
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)

	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("csv: row %d has %d columns, expected %d", i+2, len(record), len(headers))
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// NumericColumn extracts one column as float64 values, in row order.
func NumericColumn(rows []Row, name string) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		raw, ok := row[name]
		if !ok {
			return nil, fmt.Errorf("csv: row %d has no column %q", i+1, name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("csv: row %d column %q: %w", i+1, name, err)
		}
		out[i] = v
	}
	return out, nil
}

// FromCSV builds a model data block from CSV columns. The columns argument
// maps data block names to CSV column names; the observation count is added
// under countName when it is non-empty.
func FromCSV(path string, columns map[string]string, countName string) (map[string]any, error) {
	rows, err := LoadCSV(path)
	if err != nil {
		return nil, err
	}

	data := make(map[string]any, len(columns)+1)
	for dataName, colName := range columns {
		values, err := NumericColumn(rows, colName)
		if err != nil {
			return nil, err
		}
		data[dataName] = values
	}
	if countName != "" {
		data[countName] = len(rows)
	}
	return data, nil
}
