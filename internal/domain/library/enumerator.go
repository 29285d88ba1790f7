package library

import (
	"context"

	"github.com/turtacn/platemap/internal/domain/molecule"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Ports
// ─────────────────────────────────────────────────────────────────────────────

// Oracle attempts the library reaction on two reagent structures.
type Oracle interface {
	// React returns candidate products in the oracle's preferred order.
	React(ctx context.Context, a, b string) ([]string, error)
	// Validate is the structural sanity check applied to each candidate.
	Validate(structure string) bool
	// CombineDisconnected joins a and b as disconnected components. It must
	// not fail.
	CombineDisconnected(a, b string) string
}

// Describer computes descriptors for a product structure.
type Describer interface {
	Describe(structure string) (molecule.Descriptors, error)
}

// Pair is one (A, B) combination. Index is its row-major position and
// becomes the product id.
type Pair struct {
	Index int
	A     Reagent
	B     Reagent
}

// Outcome is the reaction result for one pair.
type Outcome struct {
	Structure string
	Status    Status
}

// PairResult is what a PairRunner reports for one pair. Err is set when the
// pair could not be evaluated (timeout, panic).
type PairResult struct {
	Outcome Outcome
	Err     error
}

// PairRunner evaluates fn over pairs and returns exactly one result per
// pair, in pair order. It returns an error only when the whole run must be
// abandoned.
type PairRunner interface {
	Run(ctx context.Context, pairs []Pair, fn func(context.Context, Pair) (Outcome, error)) ([]PairResult, error)
}

// SequentialRunner evaluates pairs one after another on the calling
// goroutine.
type SequentialRunner struct{}

func (SequentialRunner) Run(ctx context.Context, pairs []Pair, fn func(context.Context, Pair) (Outcome, error)) ([]PairResult, error) {
	out := make([]PairResult, len(pairs))
	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o, err := fn(ctx, p)
		out[i] = PairResult{Outcome: o, Err: err}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Enumerator
// ─────────────────────────────────────────────────────────────────────────────

// Enumerator builds the N×M product table.
type Enumerator struct {
	oracle    Oracle
	describer Describer
	runner    PairRunner
	logger    logging.Logger
}

// EnumeratorOption configures an Enumerator.
type EnumeratorOption func(*Enumerator)

// WithRunner replaces the sequential runner.
func WithRunner(r PairRunner) EnumeratorOption {
	return func(e *Enumerator) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithDescriber attaches descriptor computation to every product.
func WithDescriber(d Describer) EnumeratorOption {
	return func(e *Enumerator) { e.describer = d }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) EnumeratorOption {
	return func(e *Enumerator) { e.logger = logging.OrNop(l) }
}

// NewEnumerator creates an Enumerator around oracle.
func NewEnumerator(oracle Oracle, opts ...EnumeratorOption) *Enumerator {
	e := &Enumerator{
		oracle: oracle,
		runner: SequentialRunner{},
		logger: logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Pairs lists every (A, B) combination with A as the slow axis.
func Pairs(a, b []Reagent) []Pair {
	out := make([]Pair, 0, len(a)*len(b))
	for _, ra := range a {
		for _, rb := range b {
			out = append(out, Pair{Index: len(out), A: ra, B: rb})
		}
	}
	return out
}

// Enumerate returns exactly len(a)*len(b) products with ids 0..N*M-1 in
// row-major order. A pair whose reaction fails for any reason becomes a
// FallbackCombined product; only cancellation or a runner refusal returns
// an error.
func (e *Enumerator) Enumerate(ctx context.Context, a, b []Reagent) ([]Product, error) {
	if e.oracle == nil {
		return nil, errors.InvalidParam("enumerator has no oracle")
	}
	pairs := Pairs(a, b)
	results, err := e.runner.Run(ctx, pairs, e.react)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEnumerationFailed, "enumeration aborted")
	}
	if len(results) != len(pairs) {
		return nil, errors.Newf(errors.ErrCodeEnumerationFailed,
			"runner returned %d results for %d pairs", len(results), len(pairs))
	}

	products := make([]Product, len(pairs))
	for i, p := range pairs {
		o := results[i].Outcome
		if results[i].Err != nil {
			e.logger.Warn("pair evaluation failed, using fallback",
				logging.Int("product_id", p.Index),
				logging.String("reagent_a", p.A.ID),
				logging.String("reagent_b", p.B.ID),
				logging.Err(results[i].Err))
			o = e.fallback(p)
		}
		products[i] = Product{
			ID:         p.Index,
			ReagentAID: p.A.ID,
			ReagentBID: p.B.ID,
			Structure:  o.Structure,
			Status:     o.Status,
		}
		if e.describer != nil {
			if d, derr := e.describer.Describe(o.Structure); derr == nil {
				products[i].Descriptors = &d
			}
		}
	}

	s := Summarize(products)
	e.logger.Info("enumeration complete",
		logging.Int("reagents_a", len(a)),
		logging.Int("reagents_b", len(b)),
		logging.Int("products", s.Total),
		logging.Int("fallback", s.Fallback))
	return products, nil
}

// React resolves a single pair: the first oracle candidate passing Validate
// wins, anything else falls back. It never fails.
func React(ctx context.Context, oracle Oracle, a, b Reagent) Outcome {
	candidates, err := oracle.React(ctx, a.Structure, b.Structure)
	if err == nil {
		for _, c := range candidates {
			if oracle.Validate(c) {
				return Outcome{Structure: c, Status: StatusSuccess}
			}
		}
	}
	return Outcome{Structure: oracle.CombineDisconnected(a.Structure, b.Structure), Status: StatusFallbackCombined}
}

func (e *Enumerator) react(ctx context.Context, p Pair) (Outcome, error) {
	return React(ctx, e.oracle, p.A, p.B), nil
}

func (e *Enumerator) fallback(p Pair) Outcome {
	return Outcome{
		Structure: e.oracle.CombineDisconnected(p.A.Structure, p.B.Structure),
		Status:    StatusFallbackCombined,
	}
}

//Personal.AI order the ending
