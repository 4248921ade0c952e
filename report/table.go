package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrTableFormat is returned for table files that violate the table layout.
var ErrTableFormat = errors.New("invalid table format")

type Header struct {
	Title string
}

type Cell struct {
	Header Header
	Text   string
}

func (c Cell) String() string {
	return c.Text
}

type Row struct {
	Cells []Cell
}

// Table is a list of headers and rows. Every row has exactly one cell per
// header, aligned by index.
type Table struct {
	Headers []Header
	Rows    []Row
}

// TableJSON is the on-disk form of a table.
type TableJSON struct {
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
}

// NewTable builds a table, failing when a row does not match the headers.
func NewTable(headers []string, rows [][]string) (*Table, error) {
	t := &Table{Headers: make([]Header, len(headers))}
	for i, title := range headers {
		t.Headers[i] = Header{Title: title}
	}
	for i, cells := range rows {
		if len(cells) != len(headers) {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrTableFormat, i, len(cells), len(headers))
		}
		row := Row{Cells: make([]Cell, len(cells))}
		for j, text := range cells {
			row.Cells[j] = Cell{Header: t.Headers[j], Text: text}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// TableOf is NewTable for literal tables known to be well formed.
func TableOf(headers []string, rows ...[]string) *Table {
	t, err := NewTable(headers, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// TableFromJSON applies the table file leniency rules: without rows the
// result is an empty table regardless of headers, rows without headers are
// an error.
func TableFromJSON(tj TableJSON) (*Table, error) {
	if len(tj.Rows) == 0 {
		return &Table{}, nil
	}
	if len(tj.Headers) == 0 {
		return nil, fmt.Errorf("%w: headers must not be empty when rows are present", ErrTableFormat)
	}
	return NewTable(tj.Headers, tj.Rows)
}

// JSON returns the on-disk form of the table.
func (t *Table) JSON() TableJSON {
	tj := TableJSON{Headers: make([]string, len(t.Headers))}
	for i, h := range t.Headers {
		tj.Headers[i] = h.Title
	}
	for _, row := range t.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.Text
		}
		tj.Rows = append(tj.Rows, cells)
	}
	return tj
}

// TableFromFile reads a table JSON file.
func TableFromFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	var tj TableJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTableFormat, err)
	}
	t, err := TableFromJSON(tj)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteToFile writes the table as JSON, creating parent directories.
func (t *Table) WriteToFile(path string) error {
	data, err := json.MarshalIndent(t.JSON(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal table: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}
