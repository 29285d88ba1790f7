package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/pkg/errors"
)

// wellView is the result of one well lookup.
type wellView struct {
	Index    int    `json:"index"`
	Plate    int    `json:"plate"`
	Row      string `json:"row"`
	Column   int    `json:"column"`
	Label    string `json:"label"`
	Geometry string `json:"geometry"`
}

func (v wellView) TableHeaders() []string {
	return []string{"Index", "Plate", "Row", "Col", "Well"}
}

func (v wellView) TableRows() [][]string {
	return [][]string{{strconv.Itoa(v.Index), strconv.Itoa(v.Plate), v.Row, strconv.Itoa(v.Column), v.Label}}
}

func (v wellView) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d -> plate %d %s (%s)\n", v.Index, v.Plate, v.Label, v.Geometry)
	return err
}

// NewWellCmd creates the well command.
func NewWellCmd() *cobra.Command {
	var (
		rows, cols int
		plateNo    int
	)
	cmd := &cobra.Command{
		Use:   "well <index|label>",
		Short: "Convert between dense well indices and plate coordinates",
		Long: "Prints the plate coordinate of a zero-based index, or the index of a well label.\n" +
			"Wells fill column-major: A1, B1, ... then A2. Indices past the plate capacity\n" +
			"continue on the next plate.",
		Example: "  platemap well 95 --rows 8 --cols 12\n  platemap well H12 --rows 8 --cols 12\n  platemap well B3 --plate 2",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := plate.Geometry{Rows: rows, Cols: cols}
			if cc, err := GetCLIContext(cmd); err == nil {
				if !cmd.Flags().Changed("rows") {
					g.Rows = cc.Config.Enumeration.Geometry.Rows
				}
				if !cmd.Flags().Changed("cols") {
					g.Cols = cc.Config.Enumeration.Geometry.Cols
				}
			}
			view, err := lookupWell(g, args[0], plateNo)
			if err != nil {
				return err
			}
			return PrintResult(cmd, view)
		},
	}
	cmd.Flags().IntVar(&rows, "rows", plate.Geometry1536.Rows, "plate rows")
	cmd.Flags().IntVar(&cols, "cols", plate.Geometry1536.Cols, "plate columns")
	cmd.Flags().IntVar(&plateNo, "plate", 1, "plate number for a label")
	return cmd
}

// lookupWell resolves arg as an index when it is numeric and as a label
// otherwise.
func lookupWell(g plate.Geometry, arg string, plateNo int) (wellView, error) {
	if err := g.Validate(); err != nil {
		return wellView{}, err
	}

	var (
		w     plate.Well
		index int
		err   error
	)
	if n, convErr := strconv.Atoi(arg); convErr == nil {
		index = n
		if w, err = g.Coordinate(n); err != nil {
			return wellView{}, err
		}
	} else {
		if plateNo < 1 {
			return wellView{}, errors.InvalidParam(fmt.Sprintf("plate must be at least 1, got %d", plateNo))
		}
		if w, err = plate.ParseWell(plateNo, arg); err != nil {
			return wellView{}, err
		}
		if index, err = g.Index(w); err != nil {
			return wellView{}, err
		}
	}
	return wellView{
		Index:    index,
		Plate:    w.Plate,
		Row:      w.RowLabel(),
		Column:   w.Column,
		Label:    w.Label,
		Geometry: g.String(),
	}, nil
}

//Personal.AI order the ending
