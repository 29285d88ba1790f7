package enumeration

import (
	"context"

	"github.com/turtacn/platemap/internal/domain/library"
	"github.com/turtacn/platemap/internal/intelligence/common"
)

// PoolRunner evaluates pairs on the shared batch processor.
type PoolRunner struct {
	processor common.BatchProcessor[library.Pair, library.Outcome]
}

// NewPoolRunner wraps processor as a library.PairRunner.
func NewPoolRunner(processor common.BatchProcessor[library.Pair, library.Outcome]) *PoolRunner {
	return &PoolRunner{processor: processor}
}

// Run returns one result per pair in pair order. Items that failed, timed
// out or panicked carry their error; cancellation of ctx aborts the run.
func (r *PoolRunner) Run(ctx context.Context, pairs []library.Pair, fn func(context.Context, library.Pair) (library.Outcome, error)) ([]library.PairResult, error) {
	br, err := r.processor.Process(ctx, pairs, fn)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]library.PairResult, len(br.Results))
	for i, item := range br.Results {
		out[i] = library.PairResult{Outcome: item.Result, Err: item.Error}
	}
	return out, nil
}

var _ library.PairRunner = (*PoolRunner)(nil)

//Personal.AI order the ending
