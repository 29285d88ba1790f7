package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/platemap/internal/application/enumeration"
	"github.com/turtacn/platemap/internal/domain/library"
)

// productRow is one product with its library well.
type productRow struct {
	ID        int            `json:"product_id"`
	SID       string         `json:"s_id"`
	AmineID   string         `json:"amine_id"`
	Status    library.Status `json:"status"`
	Well      string         `json:"well"`
	Structure string         `json:"smiles"`
}

type enumerateView struct {
	Sulfonyls int             `json:"sulfonyls"`
	Amines    int             `json:"amines"`
	Geometry  string          `json:"geometry"`
	Plates    int             `json:"plates"`
	Summary   library.Summary `json:"summary"`
	Products  []productRow    `json:"products"`
	Files     []string        `json:"files,omitempty"`
}

func newEnumerateView(out *enumeration.Output, files []string) enumerateView {
	wells := make(map[int]string, len(out.Assignments))
	plates := 0
	for _, a := range out.Assignments {
		wells[a.ProductID] = a.Well.String()
		if a.Well.Plate > plates {
			plates = a.Well.Plate
		}
	}
	rows := make([]productRow, 0, len(out.Products))
	for _, p := range out.Products {
		rows = append(rows, productRow{
			ID:        p.ID,
			SID:       p.ReagentAID,
			AmineID:   p.ReagentBID,
			Status:    p.Status,
			Well:      wells[p.ID],
			Structure: p.Structure,
		})
	}
	return enumerateView{
		Sulfonyls: len(out.Sulfonyls),
		Amines:    len(out.Amines),
		Geometry:  out.Geometry.String(),
		Plates:    plates,
		Summary:   out.Summary,
		Products:  rows,
		Files:     files,
	}
}

func (v enumerateView) TableHeaders() []string {
	return []string{"ProductID", "S_ID", "Amine_ID", "Status", "Well", "SMILES"}
}

func (v enumerateView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Products))
	for _, p := range v.Products {
		rows = append(rows, []string{strconv.Itoa(p.ID), p.SID, p.AmineID, statusText(string(p.Status)), p.Well, p.Structure})
	}
	return rows
}

func (v enumerateView) RenderText(w io.Writer) error {
	if err := kv(w,
		"Sulfonyl chlorides", strconv.Itoa(v.Sulfonyls),
		"Amines", strconv.Itoa(v.Amines),
		"Products", strconv.Itoa(v.Summary.Total),
		string(library.StatusSuccess), color.GreenString("%d", v.Summary.Success),
		string(library.StatusFallbackCombined), fallbackCount(v.Summary.Fallback),
		"Library plates", fmt.Sprintf("%d x %s", v.Plates, v.Geometry),
	); err != nil {
		return err
	}
	for _, f := range v.Files {
		fmt.Fprintf(w, "wrote %s\n", f)
	}
	return nil
}

func fallbackCount(n int) string {
	if n == 0 {
		return "0"
	}
	return color.YellowString("%d", n)
}

// NewEnumerateCmd creates the enumerate command.
func NewEnumerateCmd() *cobra.Command {
	var (
		sulfonylPath, aminePath string
		outDir, base            string
		strictIDs, dryRun       bool
	)
	cmd := &cobra.Command{
		Use:   "enumerate",
		Short: "Enumerate every sulfonyl chloride x amine product and plate the library",
		Long: "Reacts every pair of the two reagent lists, writes <base>_final_products.csv\n" +
			"and <base>_plate_map_<capacity>.csv. Pairs that do not react are combined as\n" +
			"disconnected fragments and flagged FALLBACK_COMBINEMOLS.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ec := cc.Config.Enumeration
			if outDir == "" {
				outDir = cc.Config.Output.Dir
			}
			if base == "" {
				base = ec.Base
			}
			if !cmd.Flags().Changed("strict-ids") {
				strictIDs = ec.StrictIDs
			}

			var cl closers
			defer cl.close()
			svc, err := cc.enumerationService(&cl)
			if err != nil {
				return err
			}

			ctx, cancel := cc.commandContext(cmd)
			defer cancel()
			defer cc.exportMetrics(ctx, "enumerate")

			out, err := svc.Run(ctx, &enumeration.Input{
				SulfonylPath: sulfonylPath,
				AminePath:    aminePath,
				StrictIDs:    strictIDs,
			})
			if err != nil {
				return err
			}
			var files []string
			if !dryRun {
				if files, err = svc.Save(out, enumeration.DefaultPaths(outDir, base, ec.Geometry)); err != nil {
					return err
				}
			}
			return PrintResult(cmd, newEnumerateView(out, files))
		},
	}
	f := cmd.Flags()
	f.StringVar(&sulfonylPath, "sulfonyls", "", "sulfonyl chloride CSV (required)")
	f.StringVar(&aminePath, "amines", "", "amine CSV (required)")
	f.BoolVar(&strictIDs, "strict-ids", false, "require the S_ID / Amine_ID column")
	f.StringVar(&outDir, "out-dir", "", "directory for output files (default: output.dir)")
	f.StringVar(&base, "base", "", "output file name prefix (default: enumeration.base)")
	f.BoolVar(&dryRun, "dry-run", false, "print the library without writing files")
	_ = cmd.MarkFlagRequired("sulfonyls")
	_ = cmd.MarkFlagRequired("amines")
	return cmd
}

//Personal.AI order the ending
