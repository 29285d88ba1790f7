// Package analysis is the application service around the protocol static
// analyzer: it reads a script, runs the analyzer and writes the destination
// map and source layout.
package analysis

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/turtacn/platemap/internal/domain/protocol"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/internal/infrastructure/tabular"
	"github.com/turtacn/platemap/pkg/errors"
)

// Analyzer is the static analyzer front end.
type Analyzer interface {
	Analyze(ctx context.Context, src []byte) (*protocol.Result, error)
}

// Metrics receives analysis measurements.
type Metrics interface {
	ObserveStage(stage string, d time.Duration, err error)
	RecordProtocol(wells int, excluded map[string]int, conflicts int)
}

// Service defines the analysis application operations.
type Service interface {
	Run(ctx context.Context, input *Input) (*Output, error)
	Save(output *Output, paths Paths) ([]string, error)
}

// Input names the protocol to analyze. Source, when set, is used instead
// of reading ProtocolPath.
type Input struct {
	ProtocolPath string
	Source       []byte
}

// Output is the analysis of one protocol.
type Output struct {
	ProtocolPath string           `json:"protocol_path"`
	Result       *protocol.Result `json:"result"`
	Duration     time.Duration    `json:"duration"`
}

// Paths are the files Save writes; empty paths are skipped.
type Paths struct {
	DestinationMap string
	SourceLayout   string
}

// DefaultPaths places the analysis outputs in dir.
func DefaultPaths(dir string) Paths {
	return Paths{
		DestinationMap: filepath.Join(dir, "destination_map.csv"),
		SourceLayout:   filepath.Join(dir, "source_layout.csv"),
	}
}

type serviceImpl struct {
	analyzer Analyzer
	metrics  Metrics
	logger   logging.Logger
}

// NewService creates the analysis service. metrics may be nil.
func NewService(analyzer Analyzer, metrics Metrics, logger logging.Logger) Service {
	return &serviceImpl{
		analyzer: analyzer,
		metrics:  metrics,
		logger:   logging.OrNop(logger).Named("analysis"),
	}
}

func (s *serviceImpl) Run(ctx context.Context, input *Input) (out *Output, err error) {
	if input == nil || (input.ProtocolPath == "" && input.Source == nil) {
		return nil, errors.InvalidParam("protocol path is required")
	}
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveStage("analyze", time.Since(start), err)
		}
	}()

	src := input.Source
	if src == nil {
		if src, err = os.ReadFile(input.ProtocolPath); err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeProtocolRead, "read protocol %s", input.ProtocolPath)
		}
	}

	res, err := s.analyzer.Analyze(ctx, src)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		excluded := make(map[string]int)
		for _, x := range res.Excluded {
			excluded[string(x.Reason)]++
		}
		s.metrics.RecordProtocol(len(res.Entries), excluded, len(res.Conflicts))
	}
	s.logger.Info("analysis finished",
		logging.String("protocol", input.ProtocolPath),
		logging.Int("wells", len(res.Entries)),
		logging.Int("source_wells", len(res.SourceLayout)))

	return &Output{ProtocolPath: input.ProtocolPath, Result: res, Duration: time.Since(start)}, nil
}

func (s *serviceImpl) Save(output *Output, paths Paths) ([]string, error) {
	if output == nil || output.Result == nil {
		return nil, errors.InvalidParam("nothing to save")
	}
	var written []string
	if paths.DestinationMap != "" {
		err := tabular.WriteFile(paths.DestinationMap, func(w io.Writer) error {
			return tabular.WriteDestinationMap(w, output.Result.Entries)
		})
		if err != nil {
			return written, err
		}
		written = append(written, paths.DestinationMap)
	}
	if paths.SourceLayout != "" {
		err := tabular.WriteFile(paths.SourceLayout, func(w io.Writer) error {
			return tabular.WriteSourceLayout(w, output.Result.SourceLayout)
		})
		if err != nil {
			return written, err
		}
		written = append(written, paths.SourceLayout)
	}
	for _, p := range written {
		s.logger.Debug("wrote artifact", logging.String("path", p))
	}
	return written, nil
}

//Personal.AI order the ending
