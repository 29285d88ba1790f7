package tabular

import (
	"fmt"
	"io"

	"github.com/turtacn/platemap/internal/domain/library"
	"github.com/turtacn/platemap/internal/domain/molecule"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/pkg/errors"
)

// Structure columns in priority order.
var structureColumns = []string{"SMILES", "smiles", "Smiles"}

// ReagentColumns describes how one reagent list is keyed.
type ReagentColumns struct {
	// IDColumn is the preferred id column, e.g. "S_ID" or "Amine_ID".
	IDColumn string
	// GeneratedPrefix builds ids from the data row index when no id column
	// exists, e.g. "S_" gives S_000000.
	GeneratedPrefix string
}

// SulfonylColumns and AmineColumns are the two reagent list layouts.
var (
	SulfonylColumns = ReagentColumns{IDColumn: "S_ID", GeneratedPrefix: "S_"}
	AmineColumns    = ReagentColumns{IDColumn: "Amine_ID", GeneratedPrefix: "A_"}
)

// ReagentReadOptions controls ReadReagents.
type ReagentReadOptions struct {
	Columns ReagentColumns
	// StrictIDs makes Columns.IDColumn required.
	StrictIDs bool
	// Check rejects structures; rejected rows are skipped. Defaults to a
	// SMILES parse.
	Check  func(structure string) error
	Logger logging.Logger
}

// ReadReagents reads one reagent list. The id comes from the preferred id
// column, then "id" (unless StrictIDs), else it is generated from the row
// index. Rows with an empty or unparsable structure are skipped with a
// warning. An empty result is an error.
func ReadReagents(r io.Reader, opts ReagentReadOptions) ([]library.Reagent, error) {
	logger := logging.OrNop(opts.Logger)
	check := opts.Check
	if check == nil {
		check = func(s string) error {
			_, err := molecule.Parse(s)
			return err
		}
	}

	h, rows, err := readAll(r, errors.ErrCodeReagentRead)
	if err != nil {
		return nil, err
	}
	structureCol, ok := h.first(structureColumns...)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeReagentColumnMissing, "no structure column (tried %v)", structureColumns)
	}

	idCol := ""
	switch {
	case h.has(opts.Columns.IDColumn):
		idCol = opts.Columns.IDColumn
	case opts.StrictIDs:
		return nil, errors.Newf(errors.ErrCodeReagentColumnMissing, "strict ids require column %q", opts.Columns.IDColumn)
	case h.has("id"):
		idCol = "id"
	}
	nameCol, _ := h.first("name", "Name")

	out := make([]library.Reagent, 0, len(rows))
	for i, rec := range rows {
		structure := h.get(rec, structureCol)
		if structure == "" {
			logger.Warn("skipping reagent row without structure", logging.Int("row", i))
			continue
		}
		if err := check(structure); err != nil {
			logger.Warn("skipping reagent row with unparsable structure",
				logging.Int("row", i),
				logging.String("structure", structure),
				logging.Err(err))
			continue
		}
		id := fmt.Sprintf("%s%06d", opts.Columns.GeneratedPrefix, i)
		if idCol != "" {
			id = h.get(rec, idCol)
		}
		out = append(out, library.Reagent{
			ID:        id,
			Name:      h.get(rec, nameCol),
			Structure: structure,
			Row:       i,
		})
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeReagentListEmpty, "no usable reagent rows")
	}
	if err := library.ValidateReagents(out); err != nil {
		return nil, err
	}
	logger.Debug("reagents read", logging.Int("rows", len(rows)), logging.Int("kept", len(out)))
	return out, nil
}

//Personal.AI order the ending
