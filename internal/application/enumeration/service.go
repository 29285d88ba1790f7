// Package enumeration is the application service around the combinatorial
// enumerator: it reads the two reagent lists, enumerates every pair and
// places the products on the library plate.
package enumeration

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/turtacn/platemap/internal/domain/library"
	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/internal/infrastructure/tabular"
	"github.com/turtacn/platemap/internal/intelligence/reaction_oracle"
	"github.com/turtacn/platemap/pkg/errors"
)

// Metrics receives enumeration measurements.
type Metrics interface {
	ObserveStage(stage string, d time.Duration, err error)
	RecordProducts(byStatus map[string]int)
}

// Service defines the enumeration application operations.
type Service interface {
	Run(ctx context.Context, input *Input) (*Output, error)
	Save(output *Output, paths Paths) ([]string, error)
}

// Input names the reagent lists. Sulfonyls and Amines, when non-empty, are
// used instead of reading the paths.
type Input struct {
	SulfonylPath string
	AminePath    string
	StrictIDs    bool
	Sulfonyls    []library.Reagent
	Amines       []library.Reagent
}

// Output is one enumerated library.
type Output struct {
	Sulfonyls   []library.Reagent         `json:"sulfonyls"`
	Amines      []library.Reagent         `json:"amines"`
	Products    []library.Product         `json:"products"`
	Assignments []library.PlateAssignment `json:"assignments"`
	Geometry    plate.Geometry            `json:"geometry"`
	Summary     library.Summary           `json:"summary"`
	Duration    time.Duration             `json:"duration"`
}

// Paths are the files Save writes; empty paths are skipped.
type Paths struct {
	Products string
	PlateMap string
}

// DefaultPaths names the outputs after base inside dir.
func DefaultPaths(dir, base string, g plate.Geometry) Paths {
	return Paths{
		Products: filepath.Join(dir, tabular.ProductsFileName(base)),
		PlateMap: filepath.Join(dir, tabular.PlateMapFileName(base, g.Capacity())),
	}
}

// Config holds the enumeration settings.
type Config struct {
	Geometry plate.Geometry
}

type serviceImpl struct {
	cfg        Config
	enumerator *library.Enumerator
	validate   func(string) error
	metrics    Metrics
	logger     logging.Logger
}

// NewService creates the enumeration service. validate screens reagent
// structures while reading; nil accepts anything the SMILES parser reads.
func NewService(cfg Config, enumerator *library.Enumerator, validate func(string) error, metrics Metrics, logger logging.Logger) (Service, error) {
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, err
	}
	if enumerator == nil {
		return nil, errors.InvalidParam("enumerator is required")
	}
	return &serviceImpl{
		cfg:        cfg,
		enumerator: enumerator,
		validate:   validate,
		metrics:    metrics,
		logger:     logging.OrNop(logger).Named("enumeration"),
	}, nil
}

func (s *serviceImpl) Run(ctx context.Context, input *Input) (out *Output, err error) {
	if input == nil {
		return nil, errors.InvalidParam("input is required")
	}
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveStage("enumerate", time.Since(start), err)
		}
	}()

	sulfonyls := input.Sulfonyls
	if len(sulfonyls) == 0 {
		if sulfonyls, err = s.readReagents(input.SulfonylPath, tabular.SulfonylColumns, input.StrictIDs); err != nil {
			return nil, err
		}
	}
	amines := input.Amines
	if len(amines) == 0 {
		if amines, err = s.readReagents(input.AminePath, tabular.AmineColumns, input.StrictIDs); err != nil {
			return nil, err
		}
	}
	s.warnUnreactive(sulfonyls, reaction_oracle.RoleSulfonyl)
	s.warnUnreactive(amines, reaction_oracle.RoleAmine)

	products, err := s.enumerator.Enumerate(ctx, sulfonyls, amines)
	if err != nil {
		return nil, err
	}
	assignments, err := library.AssignPlates(products, s.cfg.Geometry)
	if err != nil {
		return nil, err
	}

	summary := library.Summarize(products)
	if s.metrics != nil {
		s.metrics.RecordProducts(map[string]int{
			string(library.StatusSuccess):          summary.Success,
			string(library.StatusFallbackCombined): summary.Fallback,
		})
	}
	s.logger.Info("library enumerated",
		logging.Int("sulfonyls", len(sulfonyls)),
		logging.Int("amines", len(amines)),
		logging.Int("products", summary.Total),
		logging.Int("fallback", summary.Fallback),
		logging.String("geometry", s.cfg.Geometry.String()))

	return &Output{
		Sulfonyls:   sulfonyls,
		Amines:      amines,
		Products:    products,
		Assignments: assignments,
		Geometry:    s.cfg.Geometry,
		Summary:     summary,
		Duration:    time.Since(start),
	}, nil
}

func (s *serviceImpl) readReagents(path string, cols tabular.ReagentColumns, strict bool) ([]library.Reagent, error) {
	if path == "" {
		return nil, errors.InvalidParam("reagent file for " + cols.IDColumn + " is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeReagentRead, "open %s", path)
	}
	defer f.Close()

	list, err := tabular.ReadReagents(f, tabular.ReagentReadOptions{
		Columns:   cols,
		StrictIDs: strict,
		Check:     s.validate,
		Logger:    s.logger.With(logging.String("file", path)),
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.GetCode(err), "reagents from %s", path)
	}
	return list, nil
}

// warnUnreactive flags reagents that carry no reactive group for role.
// They are still enumerated and will fall back.
func (s *serviceImpl) warnUnreactive(list []library.Reagent, role reaction_oracle.Role) {
	for _, r := range list {
		if !reaction_oracle.LooksReactive(r.Structure, role) {
			s.logger.Warn("reagent has no reactive group",
				logging.String("id", r.ID),
				logging.String("role", string(role)),
				logging.String("structure", r.Structure))
		}
	}
}

func (s *serviceImpl) Save(output *Output, paths Paths) ([]string, error) {
	if output == nil {
		return nil, errors.InvalidParam("nothing to save")
	}
	var written []string
	if paths.Products != "" {
		err := tabular.WriteFile(paths.Products, func(w io.Writer) error {
			return tabular.WriteProducts(w, output.Products)
		})
		if err != nil {
			return written, err
		}
		written = append(written, paths.Products)
	}
	if paths.PlateMap != "" {
		err := tabular.WriteFile(paths.PlateMap, func(w io.Writer) error {
			return tabular.WritePlateMap(w, output.Products, output.Assignments)
		})
		if err != nil {
			return written, err
		}
		written = append(written, paths.PlateMap)
	}
	return written, nil
}

//Personal.AI order the ending
