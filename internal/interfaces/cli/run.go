package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/platemap/internal/application/pipeline"
	"github.com/turtacn/platemap/internal/domain/platemap"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
)

type runView struct {
	Run     *platemap.Run      `json:"run"`
	Report  *platemap.QCReport `json:"report"`
	Records []recordRow        `json:"records"`
	Objects []string           `json:"objects,omitempty"`
}

func newRunView(out *pipeline.Output) runView {
	return runView{
		Run:     out.Run,
		Report:  out.Reconciliation.Report,
		Records: recordRows(out.Reconciliation.Merge.Records),
		Objects: out.Objects,
	}
}

func (v runView) TableHeaders() []string { return recordHeaders() }

func (v runView) TableRows() [][]string { return recordTable(v.Records) }

func (v runView) RenderText(w io.Writer) error {
	r := v.Run
	if err := kv(w,
		"Run", r.ID,
		"Status", statusText(string(r.Status)),
		"Destination wells", strconv.Itoa(r.Wells),
		"Missing", strconv.Itoa(r.Missing),
		"Products", fmt.Sprintf("%d (%d fallback)", r.Summary.Total, r.Summary.Fallback),
		"Elapsed", r.FinishedAt.Sub(r.StartedAt).String(),
	); err != nil {
		return err
	}
	if v.Report.MissingCount() > 0 {
		fmt.Fprintln(w)
		if _, err := io.WriteString(w, v.Report.Render()); err != nil {
			return err
		}
	}
	for _, f := range r.Artifacts {
		fmt.Fprintf(w, "wrote %s\n", f)
	}
	for _, o := range v.Objects {
		fmt.Fprintf(w, "uploaded %s\n", o)
	}
	return nil
}

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var in pipeline.Input
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Analyze, enumerate and merge in one pass",
		Long: "Analyzes the protocol and enumerates the library concurrently, merges the two\n" +
			"and writes every artifact into --out-dir. Enabled backends receive the run:\n" +
			"artifacts go to object storage, the plate map to Postgres and a completion\n" +
			"event to Kafka. Exits 1 when any well has no product.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if in.OutDir == "" {
				in.OutDir = cc.Config.Output.Dir
			}
			if in.Base == "" {
				in.Base = cc.Config.Enumeration.Base
			}
			if !cmd.Flags().Changed("strict-ids") {
				in.StrictIDs = cc.Config.Enumeration.StrictIDs
			}

			ctx, cancel := cc.commandContext(cmd)
			defer cancel()

			var cl closers
			defer cl.close()
			svc, err := cc.pipelineService(ctx, &cl)
			if err != nil {
				return err
			}
			defer cc.exportMetrics(ctx, "run")

			out, err := svc.Run(ctx, &in)
			if err != nil {
				return err
			}
			cc.Logger.Debug("Run artifacts", logging.Strings("files", out.Files))
			if err := PrintResult(cmd, newRunView(out)); err != nil {
				return err
			}
			return out.Reconciliation.Merge.Err()
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.ProtocolPath, "protocol", "", "Opentrons protocol script (required)")
	f.StringVar(&in.SulfonylPath, "sulfonyls", "", "sulfonyl chloride CSV (required)")
	f.StringVar(&in.AminePath, "amines", "", "amine CSV (required)")
	f.BoolVar(&in.StrictIDs, "strict-ids", false, "require the S_ID / Amine_ID column")
	f.StringVar(&in.OutDir, "out-dir", "", "directory for output files (default: output.dir)")
	f.StringVar(&in.Base, "base", "", "library file name prefix (default: enumeration.base)")
	_ = cmd.MarkFlagRequired("protocol")
	_ = cmd.MarkFlagRequired("sulfonyls")
	_ = cmd.MarkFlagRequired("amines")
	return cmd
}

//Personal.AI order the ending
