// Package tabular reads and writes the CSV artifacts of a platemap run:
// reagent lists, destination maps, source layouts, product tables, library
// plate maps and the authoritative merged plate map.
package tabular

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/turtacn/platemap/pkg/errors"
)

// header maps column names to their position in one CSV file.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

// first returns the first of names present in the header.
func (h header) first(names ...string) (string, bool) {
	for _, n := range names {
		if _, ok := h[n]; ok {
			return n, true
		}
	}
	return "", false
}

func (h header) has(name string) bool {
	_, ok := h[name]
	return ok
}

// get returns the trimmed cell for column name, or "" when the column or
// the cell is absent.
func (h header) get(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// require fails with code when any of names is missing.
func (h header) require(code errors.ErrorCode, names ...string) error {
	var missing []string
	for _, n := range names {
		if !h.has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return errors.Newf(code, "missing column(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// readAll reads a CSV stream into its header and data rows. Rows may have
// fewer fields than the header.
func readAll(r io.Reader, code errors.ErrorCode) (header, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, code, "read CSV")
	}
	if len(rows) == 0 {
		return nil, nil, errors.New(code, "CSV has no header row")
	}
	return newHeader(rows[0]), rows[1:], nil
}

// writeAll writes the header followed by rows.
func writeAll(w io.Writer, head []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(head); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "write CSV header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "write CSV rows")
	}
	return nil
}

func optionalInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// WriteFile writes path through fn into a temporary file in the same
// directory and renames it into place once fn succeeds.
func WriteFile(path string, fn func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrCodeOutputWrite, "create directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeOutputWrite, "create %s", path)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if err = fn(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrCodeOutputWrite, "close %s", path)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, errors.ErrCodeOutputWrite, "rename into %s", path)
	}
	return nil
}

//Personal.AI order the ending
