package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/platemap/internal/application/reconciliation"
	"github.com/turtacn/platemap/internal/domain/platemap"
)

// recordRow is one authoritative plate-map row.
type recordRow struct {
	Well        string `json:"well"`
	SID         string `json:"s_id"`
	AmineID     string `json:"amine_id"`
	ProductID   string `json:"product_id"`
	Status      string `json:"status"`
	LibraryWell string `json:"library_well"`
	Structure   string `json:"smiles,omitempty"`
}

func recordRows(records []platemap.ReconciledRecord) []recordRow {
	rows := make([]recordRow, 0, len(records))
	for _, r := range records {
		row := recordRow{
			Well:    r.Entry.Well.String(),
			SID:     r.SulfonylKey,
			AmineID: r.AmineKey,
			Status:  "missing",
		}
		if r.Product != nil {
			row.ProductID = strconv.Itoa(r.Product.ID)
			row.Status = string(r.Product.Status)
			row.Structure = r.Product.Structure
		}
		if r.LibraryWell != nil {
			row.LibraryWell = r.LibraryWell.String()
		}
		rows = append(rows, row)
	}
	return rows
}

type mergeView struct {
	Status  platemap.RunStatus `json:"status"`
	Report  *platemap.QCReport `json:"report"`
	Records []recordRow        `json:"records"`
	Files   []string           `json:"files,omitempty"`
}

func newMergeView(out *reconciliation.Output, files []string) mergeView {
	return mergeView{
		Status:  platemap.StatusOf(out.Merge),
		Report:  out.Report,
		Records: recordRows(out.Merge.Records),
		Files:   files,
	}
}

func (v mergeView) TableHeaders() []string { return recordHeaders() }

func (v mergeView) TableRows() [][]string { return recordTable(v.Records) }

func recordHeaders() []string {
	return []string{"Well", "S_ID", "Amine_ID", "ProductID", "Status", "LibraryWell"}
}

func recordTable(records []recordRow) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Well, r.SID, r.AmineID, r.ProductID, statusText(r.Status), r.LibraryWell})
	}
	return rows
}

func (v mergeView) RenderText(w io.Writer) error {
	if _, err := io.WriteString(w, v.Report.Render()); err != nil {
		return err
	}
	fmt.Fprintf(w, "Status: %s\n", statusText(string(v.Status)))
	for _, f := range v.Files {
		fmt.Fprintf(w, "wrote %s\n", f)
	}
	return nil
}

// NewMergeCmd creates the merge command.
func NewMergeCmd() *cobra.Command {
	var (
		destMap, products string
		outDir            string
		dryRun            bool
	)
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Join a destination map with the product table into the authoritative plate map",
		Long: "Left-joins every destination well with its product on the rendered reagent\n" +
			"keys and writes the authoritative plate map and qc_report.txt. Exits 1 when\n" +
			"any well has no product.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cc.Config.Output.Dir
			}
			svc, err := cc.reconciliationService()
			if err != nil {
				return err
			}

			ctx, cancel := cc.commandContext(cmd)
			defer cancel()
			defer cc.exportMetrics(ctx, "merge")

			out, err := svc.Run(ctx, &reconciliation.Input{
				DestinationMapPath: destMap,
				ProductsPath:       products,
			})
			if err != nil {
				return err
			}
			var files []string
			if !dryRun {
				if files, err = svc.Save(out, reconciliation.DefaultPaths(outDir, cc.Config.Analyzer.Geometry)); err != nil {
					return err
				}
			}
			if err := PrintResult(cmd, newMergeView(out, files)); err != nil {
				return err
			}
			return out.Merge.Err()
		},
	}
	f := cmd.Flags()
	f.StringVar(&destMap, "destination-map", "", "destination map CSV (required)")
	f.StringVar(&products, "products", "", "product table CSV (required)")
	f.StringVar(&outDir, "out-dir", "", "directory for output files (default: output.dir)")
	f.BoolVar(&dryRun, "dry-run", false, "print the merge without writing files")
	_ = cmd.MarkFlagRequired("destination-map")
	_ = cmd.MarkFlagRequired("products")
	return cmd
}

//Personal.AI order the ending
