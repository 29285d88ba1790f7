// Package pipeline runs a complete platemap pass: protocol analysis and
// library enumeration in parallel, then reconciliation, then artifact
// publication.
package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/platemap/internal/application/analysis"
	"github.com/turtacn/platemap/internal/application/enumeration"
	"github.com/turtacn/platemap/internal/application/reconciliation"
	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/internal/domain/platemap"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/pkg/errors"
)

// ArtifactStore archives the files of a run.
type ArtifactStore interface {
	Publish(ctx context.Context, runID string, files []string) ([]string, error)
}

// RunSink stores run history.
type RunSink interface {
	Save(ctx context.Context, run *platemap.Run) error
}

// EventPublisher announces finished runs.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, run *platemap.Run) error
}

// Metrics receives pipeline measurements.
type Metrics interface {
	ObserveStage(stage string, d time.Duration, err error)
	RecordRun(status string)
}

// Service defines the pipeline operation.
type Service interface {
	Run(ctx context.Context, input *Input) (*Output, error)
}

// Input names the three inputs and where outputs go.
type Input struct {
	ProtocolPath string
	SulfonylPath string
	AminePath    string
	StrictIDs    bool
	OutDir       string
	// Base prefixes the library file names.
	Base string
}

// Output is everything one run produced.
type Output struct {
	Run            *platemap.Run          `json:"run"`
	Analysis       *analysis.Output       `json:"analysis"`
	Enumeration    *enumeration.Output    `json:"enumeration"`
	Reconciliation *reconciliation.Output `json:"reconciliation"`
	Files          []string               `json:"files"`
	Objects        []string               `json:"objects,omitempty"`
}

// Complete reports whether every destination well found its product.
func (o *Output) Complete() bool { return o.Reconciliation.Complete() }

// Deps are the collaborators of the pipeline. Store, Sink, Events and
// Metrics are optional.
type Deps struct {
	Analysis       analysis.Service
	Enumeration    enumeration.Service
	Reconciliation reconciliation.Service
	Store          ArtifactStore
	Sink           RunSink
	Events         EventPublisher
	Metrics        Metrics
	Logger         logging.Logger
}

// Config holds the geometries used to name outputs.
type Config struct {
	LiveGeometry    plate.Geometry
	LibraryGeometry plate.Geometry
}

type serviceImpl struct {
	cfg  Config
	deps Deps
	now  func() time.Time
	log  logging.Logger
}

// NewService creates the pipeline service.
func NewService(cfg Config, deps Deps) (Service, error) {
	if deps.Analysis == nil || deps.Enumeration == nil || deps.Reconciliation == nil {
		return nil, errors.InvalidParam("analysis, enumeration and reconciliation services are required")
	}
	if err := cfg.LiveGeometry.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.LibraryGeometry.Validate(); err != nil {
		return nil, err
	}
	return &serviceImpl{
		cfg:  cfg,
		deps: deps,
		now:  time.Now,
		log:  logging.OrNop(deps.Logger).Named("pipeline"),
	}, nil
}

func (s *serviceImpl) Run(ctx context.Context, in *Input) (*Output, error) {
	if in == nil || in.ProtocolPath == "" || in.SulfonylPath == "" || in.AminePath == "" {
		return nil, errors.InvalidParam("protocol, sulfonyl and amine files are required")
	}
	input := *in
	if input.OutDir == "" {
		input.OutDir = "."
	}
	if input.Base == "" {
		input.Base = "library"
	}

	run := &platemap.Run{
		ID:           uuid.NewString(),
		StartedAt:    s.now().UTC(),
		ProtocolPath: input.ProtocolPath,
		SulfonylPath: input.SulfonylPath,
		AminePath:    input.AminePath,
	}
	log := s.log.With(logging.String("run_id", run.ID))
	log.Info("run started", logging.String("protocol", input.ProtocolPath))

	out, err := s.compute(ctx, &input, run)
	if err != nil {
		s.finish(run, platemap.RunFailed)
		log.Error("run failed", logging.Err(err))
		return nil, err
	}

	files, err := s.save(out, &input)
	if err != nil {
		s.finish(run, platemap.RunFailed)
		return nil, err
	}
	out.Files = files
	run.Artifacts = files
	s.finish(run, platemap.StatusOf(out.Reconciliation.Merge))

	s.publish(ctx, log, out)

	log.Info("run finished",
		logging.String("status", string(run.Status)),
		logging.Int("wells", run.Wells),
		logging.Int("missing", run.Missing),
		logging.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))
	return out, nil
}

// compute runs analysis and enumeration concurrently, then the merge. No
// file is written here.
func (s *serviceImpl) compute(ctx context.Context, input *Input, run *platemap.Run) (*Output, error) {
	out := &Output{Run: run}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.deps.Analysis.Run(gctx, &analysis.Input{ProtocolPath: input.ProtocolPath})
		out.Analysis = res
		return err
	})
	g.Go(func() error {
		res, err := s.deps.Enumeration.Run(gctx, &enumeration.Input{
			SulfonylPath: input.SulfonylPath,
			AminePath:    input.AminePath,
			StrictIDs:    input.StrictIDs,
		})
		out.Enumeration = res
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rec, err := s.deps.Reconciliation.Run(ctx, &reconciliation.Input{
		Analysis: out.Analysis.Result,
		Products: out.Enumeration.Products,
	})
	if err != nil {
		return nil, err
	}
	out.Reconciliation = rec

	run.Wells = rec.Report.TotalWells
	run.Missing = rec.Report.MissingCount()
	run.Summary = out.Enumeration.Summary
	run.Records = rec.Merge.Records
	return out, nil
}

// save writes every artifact. A failure removes what was already written
// so a failed run leaves no partial output.
func (s *serviceImpl) save(out *Output, input *Input) ([]string, error) {
	var files []string
	steps := []func() ([]string, error){
		func() ([]string, error) {
			return s.deps.Analysis.Save(out.Analysis, analysis.DefaultPaths(input.OutDir))
		},
		func() ([]string, error) {
			return s.deps.Enumeration.Save(out.Enumeration,
				enumeration.DefaultPaths(input.OutDir, input.Base, s.cfg.LibraryGeometry))
		},
		func() ([]string, error) {
			return s.deps.Reconciliation.Save(out.Reconciliation,
				reconciliation.DefaultPaths(input.OutDir, s.cfg.LiveGeometry))
		},
	}
	for _, step := range steps {
		written, err := step()
		files = append(files, written...)
		if err != nil {
			for _, f := range files {
				_ = os.Remove(f)
			}
			return nil, err
		}
	}
	return files, nil
}

func (s *serviceImpl) finish(run *platemap.Run, status platemap.RunStatus) {
	run.Status = status
	run.FinishedAt = s.now().UTC()
	if s.deps.Metrics != nil {
		var err error
		if status == platemap.RunFailed {
			err = errors.New(errors.ErrCodeInternal, "run failed")
		}
		s.deps.Metrics.ObserveStage("run", run.FinishedAt.Sub(run.StartedAt), err)
		s.deps.Metrics.RecordRun(string(status))
	}
}

// publish hands the run to the optional archive, history and event
// collaborators. Their failures are logged and do not change the outcome.
func (s *serviceImpl) publish(ctx context.Context, log logging.Logger, out *Output) {
	start := time.Now()
	var firstErr error
	note := func(what string, err error) {
		if err == nil {
			return
		}
		if firstErr == nil {
			firstErr = err
		}
		log.Warn(what+" failed", logging.Err(err))
	}

	if s.deps.Store != nil {
		objects, err := s.deps.Store.Publish(ctx, out.Run.ID, out.Files)
		out.Objects = objects
		note("artifact upload", err)
	}
	if s.deps.Sink != nil {
		note("run history save", s.deps.Sink.Save(ctx, out.Run))
	}
	if s.deps.Events != nil {
		note("run event publish", s.deps.Events.PublishRunCompleted(ctx, out.Run))
	}
	if s.deps.Metrics != nil && (s.deps.Store != nil || s.deps.Sink != nil || s.deps.Events != nil) {
		s.deps.Metrics.ObserveStage("publish", time.Since(start), firstErr)
	}
}

//Personal.AI order the ending
