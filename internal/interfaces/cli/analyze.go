package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/turtacn/platemap/internal/application/analysis"
	"github.com/turtacn/platemap/internal/domain/protocol"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/pkg/errors"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 250 * time.Millisecond

// analyzeView is the console form of an analysis.
type analyzeView struct {
	Protocol   string                         `json:"protocol"`
	Wells      int                            `json:"wells"`
	Sources    int                            `json:"source_wells"`
	Entries    []protocol.DestinationMapEntry `json:"entries"`
	Excluded   []protocol.ExcludedTransfer    `json:"excluded,omitempty"`
	Conflicts  []protocol.Conflict            `json:"conflicts,omitempty"`
	OutOfPlate int                            `json:"out_of_plate"`
	Files      []string                       `json:"files,omitempty"`
}

func newAnalyzeView(out *analysis.Output, files []string) analyzeView {
	res := out.Result
	return analyzeView{
		Protocol:   out.ProtocolPath,
		Wells:      len(res.Entries),
		Sources:    len(res.SourceLayout),
		Entries:    res.Entries,
		Excluded:   res.Excluded,
		Conflicts:  res.Conflicts,
		OutOfPlate: len(res.OutOfPlate),
		Files:      files,
	}
}

func (v analyzeView) TableHeaders() []string {
	return []string{"Well", "Sulfonyl #", "Amine #", "Sulfonyl source", "Amine source"}
}

func (v analyzeView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Entries))
	for _, e := range v.Entries {
		row := []string{e.Well.String(), "", "", "", ""}
		if e.Sulfonyl != nil {
			row[1], row[3] = strconv.Itoa(e.Sulfonyl.Number), e.Sulfonyl.SourceWell.String()
		}
		if e.Amine != nil {
			row[2], row[4] = strconv.Itoa(e.Amine.Number), e.Amine.SourceWell.String()
		}
		rows = append(rows, row)
	}
	return rows
}

func (v analyzeView) RenderText(w io.Writer) error {
	if err := kv(w,
		"Protocol", v.Protocol,
		"Destination wells", strconv.Itoa(v.Wells),
		"Source wells", strconv.Itoa(v.Sources),
		"Excluded transfers", strconv.Itoa(len(v.Excluded)),
		"Conflicts", strconv.Itoa(len(v.Conflicts)),
	); err != nil {
		return err
	}
	for _, x := range v.Excluded {
		fmt.Fprintf(w, "  line %d: %s %s\n", x.Line, statusText("missing"), x.Reason)
	}
	for _, f := range v.Files {
		fmt.Fprintf(w, "wrote %s\n", f)
	}
	return nil
}

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	var (
		outDir string
		dryRun bool
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <protocol.py>",
		Short: "Recover the destination map from a protocol script without running it",
		Long: "Parses the Opentrons protocol, resolves every transfer to its reagent and\n" +
			"writes destination_map.csv and source_layout.csv. With --watch the protocol\n" +
			"is re-analyzed whenever it changes.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cc.Config.Output.Dir
			}
			svc, err := cc.analysisService()
			if err != nil {
				return err
			}
			paths := analysis.DefaultPaths(outDir)
			if dryRun {
				paths = analysis.Paths{}
			}

			if watch {
				return watchProtocol(cmd.Context(), cc.Logger, args[0], func(ctx context.Context) error {
					return runAnalyze(ctx, cmd, cc, svc, args[0], paths)
				})
			}

			ctx, cancel := cc.commandContext(cmd)
			defer cancel()
			defer cc.exportMetrics(ctx, "analyze")
			return runAnalyze(ctx, cmd, cc, svc, args[0], paths)
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for output files (default: output.dir)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the analysis without writing files")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-analyze when the protocol changes")
	return cmd
}

func runAnalyze(ctx context.Context, cmd *cobra.Command, cc *CLIContext, svc analysis.Service, path string, paths analysis.Paths) error {
	out, err := svc.Run(ctx, &analysis.Input{ProtocolPath: path})
	if err != nil {
		return err
	}
	files, err := svc.Save(out, paths)
	if err != nil {
		return err
	}
	cc.Logger.Debug("Analysis saved", logging.Strings("files", files))
	return PrintResult(cmd, newAnalyzeView(out, files))
}

// watchProtocol runs fn once, then again after every change to path until
// ctx is done. Errors from fn are reported and do not stop the watch.
func watchProtocol(ctx context.Context, log logging.Logger, path string, fn func(context.Context) error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeProtocolRead, "resolve %s", path)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "create file watcher")
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, errors.ErrCodeProtocolRead, "watch %s", filepath.Dir(abs))
	}

	rerun := func() {
		if err := fn(ctx); err != nil {
			log.Error("Analysis failed", logging.String("protocol", path), logging.Err(err))
		}
	}
	rerun()
	log.Info("Watching protocol for changes", logging.String("protocol", abs))

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			debounce = time.After(watchDebounce)
		case <-debounce:
			debounce = nil
			rerun()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("File watcher error", logging.Err(err))
		}
	}
}

//Personal.AI order the ending
