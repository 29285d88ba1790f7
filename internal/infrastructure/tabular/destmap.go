package tabular

import (
	"io"
	"strconv"

	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/internal/domain/protocol"
	"github.com/turtacn/platemap/pkg/errors"
)

// Destination map columns.
const (
	ColWell           = "Well"
	ColSulfonylNumber = "Sulfonyl chloride #"
	ColAmineNumber    = "Amine #"
	ColSulfonylSource = "Sulfonyl source well"
	ColAmineSource    = "Amine source well"
	ColSourceWell     = "SourceWell"
	ColReagentClass   = "ReagentClass"
	ColReagentNumber  = "ReagentNumber"
	ColReagentName    = "ReagentName"
	ColVolume         = "Volume_uL"
)

// DestinationMapHeader is the column order of the destination map.
var DestinationMapHeader = []string{ColWell, ColSulfonylNumber, ColAmineNumber, ColSulfonylSource, ColAmineSource}

// SourceLayoutHeader is the column order of the source layout.
var SourceLayoutHeader = []string{ColSourceWell, ColReagentClass, ColReagentNumber, ColReagentName, ColVolume}

func destinationCells(e protocol.DestinationMapEntry) []string {
	row := []string{e.Well.Label, "", "", "", ""}
	if s := e.Sulfonyl; s != nil {
		row[1], row[3] = strconv.Itoa(s.Number), s.SourceWell.Label
	}
	if a := e.Amine; a != nil {
		row[2], row[4] = strconv.Itoa(a.Number), a.SourceWell.Label
	}
	return row
}

// WriteDestinationMap writes entries in the given order. Absent classes
// leave their cells empty.
func WriteDestinationMap(w io.Writer, entries []protocol.DestinationMapEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, destinationCells(e))
	}
	return writeAll(w, DestinationMapHeader, rows)
}

// ReadDestinationMap reads a destination map written by WriteDestinationMap
// (or by hand). The well and both number columns are required; the source
// well columns and individual cells may be empty. Rows keep file order.
func ReadDestinationMap(r io.Reader) ([]protocol.DestinationMapEntry, error) {
	h, rows, err := readAll(r, errors.ErrCodeMergeInputRead)
	if err != nil {
		return nil, err
	}
	if err := h.require(errors.ErrCodeMergeColumnMissing, ColWell, ColSulfonylNumber, ColAmineNumber); err != nil {
		return nil, err
	}

	out := make([]protocol.DestinationMapEntry, 0, len(rows))
	for i, rec := range rows {
		label := h.get(rec, ColWell)
		if label == "" {
			continue
		}
		well, err := plate.ParseWell(1, label)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeMergeValueInvalid, "destination map row %d", i+1)
		}
		e := protocol.DestinationMapEntry{Well: well}
		if e.Sulfonyl, err = readAssignment(h, rec, ColSulfonylNumber, ColSulfonylSource); err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeMergeValueInvalid, "destination map row %d (%s)", i+1, label)
		}
		if e.Amine, err = readAssignment(h, rec, ColAmineNumber, ColAmineSource); err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeMergeValueInvalid, "destination map row %d (%s)", i+1, label)
		}
		out = append(out, e)
	}
	return out, nil
}

func readAssignment(h header, rec []string, numberCol, sourceCol string) (*protocol.Assignment, error) {
	raw := h.get(rec, numberCol)
	if raw == "" {
		return nil, nil
	}
	n, err := parseNumber(raw)
	if err != nil {
		return nil, err
	}
	a := &protocol.Assignment{Number: n}
	if src := h.get(rec, sourceCol); src != "" {
		if a.SourceWell, err = plate.ParseWell(1, src); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// parseNumber accepts "3" as well as the "3.0" spreadsheets produce.
func parseNumber(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, errors.Newf(errors.ErrCodeMergeValueInvalid, "%q is not a whole number", raw)
	}
	return int(f), nil
}

// WriteSourceLayout writes the source layout rows in first-load order.
func WriteSourceLayout(w io.Writer, rows []protocol.SourceLayoutRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		vol := ""
		if r.Volume != nil {
			vol = strconv.FormatFloat(*r.Volume, 'f', -1, 64)
		}
		out = append(out, []string{r.SourceWell, string(r.Class), optionalInt(r.Number), r.Name, vol})
	}
	return writeAll(w, SourceLayoutHeader, out)
}

//Personal.AI order the ending
