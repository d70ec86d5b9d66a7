package hillclimb

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Header describes the attribute layout of a Dataset.
type Header struct {
	// Attributes lists the column names in order.
	Attributes []string

	// ClassIndex is the position of the class attribute in Attributes.
	ClassIndex int
}

// Compatible returns an error if other does not share the attribute layout of
// h. A test set must be compatible with its training set.
func (h Header) Compatible(other Header) error {
	if h.ClassIndex != other.ClassIndex {
		return fmt.Errorf("class index %d differs from %d", other.ClassIndex, h.ClassIndex)
	}

	if len(h.Attributes) != len(other.Attributes) {
		return fmt.Errorf("%d attributes differ from %d", len(other.Attributes), len(h.Attributes))
	}

	for i, name := range h.Attributes {
		if other.Attributes[i] != name {
			return fmt.Errorf("attribute %d is %q, expected %q", i, other.Attributes[i], name)
		}
	}

	return nil
}

// Dataset is the read-only data handed to evaluations. Implementations must be
// safe for concurrent reads.
type Dataset interface {
	// Len returns the number of instances.
	Len() int

	// Header returns the attribute layout.
	Header() Header

	// Class returns the class label of instance i, used for stratification.
	Class(i int) string

	// Row returns a copy of the cells of instance i.
	Row(i int) []string

	// Subset returns a dataset made of the instances at idx, in that order.
	Subset(idx []int) Dataset
}

// Table is an in-memory Dataset of string cells.
type Table struct {
	header Header
	rows   [][]string
}

// NewTable creates a table. Rows are not copied and must not be modified
// afterwards.
func NewTable(header Header, rows [][]string) (*Table, error) {
	if header.ClassIndex < 0 || header.ClassIndex >= len(header.Attributes) {
		return nil, fmt.Errorf("class index %d out of range for %d attributes", header.ClassIndex, len(header.Attributes))
	}

	for i, row := range rows {
		if len(row) != len(header.Attributes) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i, len(row), len(header.Attributes))
		}
	}

	return &Table{
		header: Header{Attributes: slices.Clone(header.Attributes), ClassIndex: header.ClassIndex},
		rows:   rows,
	}, nil
}

// Len implements Dataset.
func (t *Table) Len() int {
	return len(t.rows)
}

// Header implements Dataset.
func (t *Table) Header() Header {
	return Header{Attributes: slices.Clone(t.header.Attributes), ClassIndex: t.header.ClassIndex}
}

// Class implements Dataset.
func (t *Table) Class(i int) string {
	return t.rows[i][t.header.ClassIndex]
}

// Row implements Dataset.
func (t *Table) Row(i int) []string {
	return slices.Clone(t.rows[i])
}

// Subset implements Dataset.
func (t *Table) Subset(idx []int) Dataset {
	rows := make([][]string, len(idx))
	for i, k := range idx {
		rows[i] = t.rows[k]
	}

	return &Table{header: t.header, rows: rows}
}

// ReadCSV reads a table whose first record is the header. A negative
// classIndex selects the last column.
func ReadCSV(r io.Reader, classIndex int) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	if len(records) == 0 {
		return nil, errors.New("csv has no header")
	}

	attributes := records[0]
	if classIndex < 0 {
		classIndex = len(attributes) - 1
	}

	return NewTable(Header{Attributes: attributes, ClassIndex: classIndex}, records[1:])
}

// WriteCSV writes ds as CSV with a header record.
func WriteCSV(w io.Writer, ds Dataset) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(ds.Header().Attributes); err != nil {
		return err
	}

	for i := 0; i < ds.Len(); i++ {
		if err := writer.Write(ds.Row(i)); err != nil {
			return err
		}
	}

	writer.Flush()

	return writer.Error()
}
