// Package datagrid reads whitespace separated numeric tables, such as the
// band and density-of-states data files written by simulation codes, into
// dense matrices with column access.
package datagrid

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/Hanaasagi/w90parse/pkg/quantity"
)

var (
	// ErrEmpty is returned when no numeric row is found
	ErrEmpty = errors.New("no numeric rows")
	// ErrRaggedRow is returned when a row has a different column count
	ErrRaggedRow = errors.New("row column count differs")
	// ErrTooFewColumns is returned when rows are narrower than required
	ErrTooFewColumns = errors.New("too few columns")
)

const maxLineSize = 1024 * 1024

// Table is a numeric table stored row-major in a gonum matrix
type Table struct {
	data *mat.Dense
	// Blocks holds the row index where each blank-line separated block starts
	Blocks []int
}

// Reader parses numeric tables
type Reader struct {
	commentPrefixes []string
	minColumns      int
}

type Option func(*Reader)

// WithCommentPrefixes sets the line prefixes that mark comments
func WithCommentPrefixes(prefixes ...string) Option {
	return func(r *Reader) {
		r.commentPrefixes = prefixes
	}
}

// WithMinColumns rejects tables narrower than n columns
func WithMinColumns(n int) Option {
	return func(r *Reader) {
		r.minColumns = n
	}
}

// NewReader creates a reader with default settings
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		commentPrefixes: []string{"#", "!"},
		minColumns:      1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read parses a table from r
func (rd *Reader) Read(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		data      []float64
		cols      int
		nrows     int
		blocks    []int
		prevBlank = true
		lineNo    int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			prevBlank = true
			continue
		}
		if rd.isComment(line) {
			continue
		}

		fields := strings.Fields(line)
		if cols == 0 {
			cols = len(fields)
			if cols < rd.minColumns {
				return nil, fmt.Errorf("%w: line %d has %d, want at least %d", ErrTooFewColumns, lineNo, cols, rd.minColumns)
			}
		} else if len(fields) != cols {
			return nil, fmt.Errorf("%w: line %d has %d columns, want %d", ErrRaggedRow, lineNo, len(fields), cols)
		}

		for _, f := range fields {
			v, err := quantity.ParseFloat(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing %q: %w", lineNo, f, err)
			}
			data = append(data, v)
		}
		if prevBlank {
			blocks = append(blocks, nrows)
			prevBlank = false
		}
		nrows++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	if nrows == 0 {
		return nil, ErrEmpty
	}

	return &Table{data: mat.NewDense(nrows, cols, data), Blocks: blocks}, nil
}

// ReadFile parses the table stored in path
func (rd *Reader) ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table: %w", err)
	}
	defer f.Close() // nolint: errcheck

	t, err := rd.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse parses a table held in memory
func (rd *Reader) Parse(text string) (*Table, error) {
	return rd.Read(strings.NewReader(text))
}

func (rd *Reader) isComment(line string) bool {
	for _, p := range rd.commentPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// ReadFile parses path with default settings
func ReadFile(path string) (*Table, error) {
	return NewReader().ReadFile(path)
}

// Parse parses text with default settings
func Parse(text string) (*Table, error) {
	return NewReader().Parse(text)
}

// Dims returns the number of rows and columns
func (t *Table) Dims() (rows, cols int) {
	return t.data.Dims()
}

// Column returns a copy of column j
func (t *Table) Column(j int) []float64 {
	return mat.Col(nil, j, t.data)
}

// Row returns a copy of row i
func (t *Table) Row(i int) []float64 {
	return mat.Row(nil, i, t.data)
}

// Dense exposes the underlying matrix
func (t *Table) Dense() *mat.Dense {
	return t.data
}
