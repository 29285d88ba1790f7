// Package reconciliation joins a destination map with an enumerated product
// table into the authoritative plate map and its QC report.
package reconciliation

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/turtacn/platemap/internal/domain/library"
	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/internal/domain/platemap"
	"github.com/turtacn/platemap/internal/domain/protocol"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/internal/infrastructure/tabular"
	"github.com/turtacn/platemap/pkg/errors"
)

// Metrics receives merge measurements.
type Metrics interface {
	ObserveStage(stage string, d time.Duration, err error)
	RecordMerge(total, missing int)
}

// Service defines the reconciliation application operations.
type Service interface {
	Run(ctx context.Context, input *Input) (*Output, error)
	Save(output *Output, paths Paths) ([]string, error)
}

// Input supplies the two sides of the join, either in memory or as files.
// Analysis, when present, adds conflicts and excluded transfers to the QC
// report.
type Input struct {
	DestinationMapPath string
	ProductsPath       string
	Entries            []protocol.DestinationMapEntry
	Products           []library.Product
	Analysis           *protocol.Result
}

// Output is the merge and its QC report.
type Output struct {
	Merge    *platemap.MergeResult `json:"merge"`
	Report   *platemap.QCReport    `json:"report"`
	Duration time.Duration         `json:"duration"`
}

// Complete reports whether every destination well found its product.
func (o *Output) Complete() bool { return o.Merge.Complete() }

// Paths are the files Save writes; empty paths are skipped.
type Paths struct {
	Authoritative string
	QCReport      string
}

// DefaultPaths places the merge outputs in dir. live is the live-run plate
// geometry and names the authoritative file.
func DefaultPaths(dir string, live plate.Geometry) Paths {
	return Paths{
		Authoritative: filepath.Join(dir, "authoritative_plate_map_"+strconv.Itoa(live.Capacity())+".csv"),
		QCReport:      filepath.Join(dir, "qc_report.txt"),
	}
}

// Config holds the merge settings.
type Config struct {
	Keys            platemap.KeyFormat
	LibraryGeometry plate.Geometry
}

type serviceImpl struct {
	cfg     Config
	metrics Metrics
	logger  logging.Logger
}

// NewService creates the reconciliation service.
func NewService(cfg Config, metrics Metrics, logger logging.Logger) (Service, error) {
	if cfg.Keys == (platemap.KeyFormat{}) {
		cfg.Keys = platemap.DefaultKeyFormat()
	}
	if err := cfg.Keys.Validate(); err != nil {
		return nil, err
	}
	return &serviceImpl{
		cfg:     cfg,
		metrics: metrics,
		logger:  logging.OrNop(logger).Named("reconciliation"),
	}, nil
}

func (s *serviceImpl) Run(ctx context.Context, input *Input) (out *Output, err error) {
	if input == nil {
		return nil, errors.InvalidParam("input is required")
	}
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveStage("merge", time.Since(start), err)
		}
	}()
	if err = ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCanceled, "merge canceled")
	}

	entries := input.Entries
	if entries == nil {
		if input.Analysis != nil {
			entries = input.Analysis.Entries
		} else if entries, err = readDestinationMap(input.DestinationMapPath); err != nil {
			return nil, err
		}
	}
	products := input.Products
	if products == nil {
		if products, err = readProducts(input.ProductsPath); err != nil {
			return nil, err
		}
	}

	merged := platemap.Merge(entries, products, platemap.MergeOptions{
		Keys:            s.cfg.Keys,
		LibraryGeometry: s.cfg.LibraryGeometry,
		Logger:          s.logger,
	})
	report := merged.Report(input.Analysis)
	if s.metrics != nil {
		s.metrics.RecordMerge(report.TotalWells, report.MissingCount())
	}
	if !merged.Complete() {
		s.logger.Warn("plate map incomplete",
			logging.Int("wells", report.TotalWells),
			logging.Int("missing", report.MissingCount()))
	}
	return &Output{Merge: merged, Report: report, Duration: time.Since(start)}, nil
}

func readDestinationMap(path string) ([]protocol.DestinationMapEntry, error) {
	if path == "" {
		return nil, errors.InvalidParam("destination map is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeMergeInputRead, "open %s", path)
	}
	defer f.Close()
	return tabular.ReadDestinationMap(f)
}

func readProducts(path string) ([]library.Product, error) {
	if path == "" {
		return nil, errors.InvalidParam("product table is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeMergeInputRead, "open %s", path)
	}
	defer f.Close()
	return tabular.ReadProducts(f)
}

func (s *serviceImpl) Save(output *Output, paths Paths) ([]string, error) {
	if output == nil || output.Merge == nil {
		return nil, errors.InvalidParam("nothing to save")
	}
	var written []string
	if paths.Authoritative != "" {
		err := tabular.WriteFile(paths.Authoritative, func(w io.Writer) error {
			return tabular.WriteAuthoritative(w, output.Merge.Records)
		})
		if err != nil {
			return written, err
		}
		written = append(written, paths.Authoritative)
	}
	if paths.QCReport != "" {
		err := tabular.WriteFile(paths.QCReport, func(w io.Writer) error {
			if _, err := output.Report.WriteTo(w); err != nil {
				return errors.Wrap(err, errors.ErrCodeOutputWrite, "write QC report")
			}
			return nil
		})
		if err != nil {
			return written, err
		}
		written = append(written, paths.QCReport)
	}
	return written, nil
}

//Personal.AI order the ending
