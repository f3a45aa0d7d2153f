// Package rawtable loads raw bank-export files into a header-indexed table.
// Raw files are transient inputs: they are read once per run and never
// mutated.
package rawtable

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Options controls file parsing and normally comes from an import preset.
type Options struct {
	Delimiter rune // 0 means comma
	SkipRows  int  // rows discarded before the header
	HasHeader bool
}

// DefaultOptions parses a plain comma-separated file with a header row.
func DefaultOptions() Options {
	return Options{Delimiter: ',', HasHeader: true}
}

// Table is one parsed raw file: a header index plus string cells.
type Table struct {
	index   map[string]int
	headers []string
	rows    [][]string
}

// Load reads and parses the file at path.
func Load(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw file: %w", err)
	}
	defer func() { _ = f.Close() }()

	t, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV content from r according to opts. Ragged rows are
// tolerated; missing cells read as empty strings. When the file has no
// header row, columns are addressable by index: "0", "1", ...
func Read(r io.Reader, opts Options) (*Table, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	if opts.SkipRows > 0 {
		if opts.SkipRows >= len(records) {
			records = nil
		} else {
			records = records[opts.SkipRows:]
		}
	}

	t := &Table{index: make(map[string]int)}
	if len(records) == 0 {
		return t, nil
	}

	if opts.HasHeader {
		for _, h := range records[0] {
			t.headers = append(t.headers, strings.TrimSpace(h))
		}
		records = records[1:]
	} else {
		width := 0
		for _, rec := range records {
			if len(rec) > width {
				width = len(rec)
			}
		}
		for i := 0; i < width; i++ {
			t.headers = append(t.headers, strconv.Itoa(i))
		}
	}

	for i, h := range t.headers {
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	t.rows = records

	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Cell returns the trimmed value at (row, column), or "" when the column does
// not exist or the row is too short.
func (t *Table) Cell(row int, column string) string {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return ""
	}
	rec := t.rows[row]
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
