// Package plate maps dense integer indices to plate coordinates and back.
//
// Wells fill column-major: the row varies fastest, then the column, then the
// plate. For a geometry of R rows and C columns (capacity R×C):
//
//	plate  = index / capacity + 1
//	column = (index % capacity) / R + 1
//	row    = (index % capacity) % R
//
// Row labels run A..Z and continue AA, AB, … so 32-row (1536-well) plates are
// addressable.
package plate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/platemap/pkg/errors"
)

// Common geometries.
var (
	Geometry96   = Geometry{Rows: 8, Cols: 12}
	Geometry384  = Geometry{Rows: 16, Cols: 24}
	Geometry1536 = Geometry{Rows: 32, Cols: 48}
)

// Geometry is the row and column count of one plate.
type Geometry struct {
	Rows int `json:"rows" yaml:"rows" mapstructure:"rows"`
	Cols int `json:"cols" yaml:"cols" mapstructure:"cols"`
}

// NewGeometry returns a validated geometry.
func NewGeometry(rows, cols int) (Geometry, error) {
	g := Geometry{Rows: rows, Cols: cols}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

// Validate checks that both dimensions are positive.
func (g Geometry) Validate() error {
	if g.Rows < 1 || g.Cols < 1 {
		return errors.New(errors.ErrCodeGeometryInvalid, "plate geometry needs at least one row and one column").
			WithDetailf("rows=%d cols=%d", g.Rows, g.Cols)
	}
	return nil
}

// Capacity is the number of wells per plate.
func (g Geometry) Capacity() int { return g.Rows * g.Cols }

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.Rows, g.Cols)
}

// Well is one addressable position. Row is zero-based (0 → "A"); Column is
// one-based.
type Well struct {
	Plate  int    `json:"plate"`
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Label  string `json:"label"`
}

// RowLabel returns the letter part of the label.
func (w Well) RowLabel() string { return RowLabel(w.Row) }

func (w Well) String() string {
	if w.Plate > 1 {
		return fmt.Sprintf("P%d:%s", w.Plate, w.Label)
	}
	return w.Label
}

// NewWell builds a well and its canonical label.
func NewWell(plateNo, row, column int) Well {
	return Well{Plate: plateNo, Row: row, Column: column, Label: Label(row, column)}
}

// Coordinate maps a dense index onto (plate, row, column, label).
func (g Geometry) Coordinate(index int) (Well, error) {
	if err := g.Validate(); err != nil {
		return Well{}, err
	}
	if index < 0 {
		return Well{}, errors.Newf(errors.ErrCodeWellIndexInvalid, "well index must be non-negative, got %d", index)
	}
	capacity := g.Capacity()
	offset := index % capacity
	return NewWell(index/capacity+1, offset%g.Rows, offset/g.Rows+1), nil
}

// Index is the exact inverse of Coordinate. The well must lie inside the
// geometry; its label is not consulted.
func (g Geometry) Index(w Well) (int, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	if w.Plate < 1 || w.Row < 0 || w.Row >= g.Rows || w.Column < 1 || w.Column > g.Cols {
		return 0, errors.New(errors.ErrCodeWellIndexInvalid, "well lies outside plate geometry").
			WithDetailf("well=%s plate=%d geometry=%s", w.Label, w.Plate, g)
	}
	return (w.Plate-1)*g.Capacity() + (w.Column-1)*g.Rows + w.Row, nil
}

// Contains reports whether row and column fit the geometry.
func (g Geometry) Contains(w Well) bool {
	return w.Row >= 0 && w.Row < g.Rows && w.Column >= 1 && w.Column <= g.Cols
}

// RowLabel converts a zero-based row to letters: 0→A, 25→Z, 26→AA.
func RowLabel(row int) string {
	if row < 0 {
		return ""
	}
	var b []byte
	for n := row + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// ParseRow is the inverse of RowLabel. It is case-insensitive.
func ParseRow(s string) (int, error) {
	if s == "" {
		return 0, errors.New(errors.ErrCodeWellLabelInvalid, "empty row label")
	}
	n := 0
	for _, r := range strings.ToUpper(s) {
		if r < 'A' || r > 'Z' {
			return 0, errors.Newf(errors.ErrCodeWellLabelInvalid, "invalid row label %q", s)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, nil
}

// Label renders the canonical short form, e.g. Label(1, 12) == "B12".
func Label(row, column int) string {
	return RowLabel(row) + strconv.Itoa(column)
}

// ParseLabel splits a well label such as "B12" into a zero-based row and a
// one-based column. Leading zeros in the column are accepted.
func ParseLabel(label string) (row, column int, err error) {
	s := strings.TrimSpace(label)
	i := 0
	for i < len(s) && ((s[i] >= 'A' && s[i] <= 'Z') || (s[i] >= 'a' && s[i] <= 'z')) {
		i++
	}
	if i == 0 || i == len(s) {
		return 0, 0, errors.Newf(errors.ErrCodeWellLabelInvalid, "invalid well label %q", label)
	}
	row, err = ParseRow(s[:i])
	if err != nil {
		return 0, 0, err
	}
	column, convErr := strconv.Atoi(s[i:])
	if convErr != nil || column < 1 {
		return 0, 0, errors.Newf(errors.ErrCodeWellLabelInvalid, "invalid well label %q", label)
	}
	return row, column, nil
}

// ParseWell parses a label into a Well on the given plate with a canonical
// label.
func ParseWell(plateNo int, label string) (Well, error) {
	row, column, err := ParseLabel(label)
	if err != nil {
		return Well{}, err
	}
	return NewWell(plateNo, row, column), nil
}

// Less orders wells column-major: plate, then column, then row.
func Less(a, b Well) bool {
	if a.Plate != b.Plate {
		return a.Plate < b.Plate
	}
	if a.Column != b.Column {
		return a.Column < b.Column
	}
	return a.Row < b.Row
}

// SortColumnMajor sorts wells in place in fill order.
func SortColumnMajor(wells []Well) {
	sort.SliceStable(wells, func(i, j int) bool { return Less(wells[i], wells[j]) })
}

//Personal.AI order the ending
