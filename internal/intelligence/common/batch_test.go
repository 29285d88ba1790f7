package common

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingMetrics struct {
	batches []*BatchMetricParams
}

func (r *recordingMetrics) RecordBatchProcessing(_ context.Context, p *BatchMetricParams) {
	r.batches = append(r.batches, p)
}

func TestNewBatchProcessor_Defaults(t *testing.T) {
	bp := NewBatchProcessor[string, string]()
	assert.NotNil(t, bp)
}

func TestProcess_AllSuccess(t *testing.T) {
	bp := NewBatchProcessor[string, string]()
	items := []string{"a", "b", "c"}
	fn := func(ctx context.Context, item string) (string, error) {
		return item + "_processed", nil
	}

	res, err := bp.Process(context.Background(), items, fn)
	require.NoError(t, err)
	assert.Equal(t, 3, res.SuccessCount)
	assert.Equal(t, "a_processed", res.Results[0].Result)
	assert.Equal(t, 1, res.Results[0].Attempts)
}

func TestProcess_Empty(t *testing.T) {
	bp := NewBatchProcessor[int, int]()
	res, err := bp.Process(context.Background(), nil, func(context.Context, int) (int, error) { return 0, nil })
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.TotalCount)
}

func TestProcess_NilFunc(t *testing.T) {
	bp := NewBatchProcessor[int, int]()
	_, err := bp.Process(context.Background(), []int{1}, nil)
	assert.Error(t, err)
}

func TestProcess_AllFailure(t *testing.T) {
	bp := NewBatchProcessor[string, string]()
	items := []string{"a", "b"}
	fn := func(ctx context.Context, item string) (string, error) {
		return "", errors.New("failed")
	}

	res, err := bp.Process(context.Background(), items, fn)
	require.NoError(t, err)
	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, 2, res.FailureCount)
	assert.Error(t, res.Results[0].Error)
	assert.Equal(t, ItemStatusFailed, res.Results[1].Status)
}

func TestProcess_PreservesInputOrder(t *testing.T) {
	bp := NewBatchProcessor[int, int](WithMaxConcurrency(8))
	items := make([]int, 200)
	for i := range items {
		items[i] = i
	}
	fn := func(ctx context.Context, item int) (int, error) {
		// later items finish first
		time.Sleep(time.Duration(200-item) * 10 * time.Microsecond)
		return item * item, nil
	}

	res, err := bp.Process(context.Background(), items, fn)
	require.NoError(t, err)
	require.Len(t, res.Results, len(items))
	for i, r := range res.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, i*i, r.Result)
	}
}

func TestProcess_ConcurrencyLimit(t *testing.T) {
	var concurrentCount int32
	var maxConcurrent int32

	bp := NewBatchProcessor[int, int](WithMaxConcurrency(2))
	items := []int{1, 2, 3, 4, 5}

	fn := func(ctx context.Context, item int) (int, error) {
		curr := atomic.AddInt32(&concurrentCount, 1)
		defer atomic.AddInt32(&concurrentCount, -1)
		for {
			max := atomic.LoadInt32(&maxConcurrent)
			if curr <= max || atomic.CompareAndSwapInt32(&maxConcurrent, max, curr) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return item * 2, nil
	}

	_, err := bp.Process(context.Background(), items, fn)
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxConcurrent), int32(2))
}

func TestProcess_ItemTimeout(t *testing.T) {
	bp := NewBatchProcessor[int, int](WithItemTimeout(10 * time.Millisecond))
	items := []int{1}

	fn := func(ctx context.Context, item int) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return item, nil
		}
	}

	res, err := bp.Process(context.Background(), items, fn)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailureCount)
	assert.Equal(t, ItemStatusTimeout, res.Results[0].Status)
}

func TestProcess_CancelledContext(t *testing.T) {
	bp := NewBatchProcessor[int, int](WithMaxConcurrency(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := bp.Process(ctx, []int{1, 2, 3}, func(ctx context.Context, item int) (int, error) {
		return item, ctx.Err()
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.FailureCount)
	for _, r := range res.Results {
		assert.Equal(t, ItemStatusCancelled, r.Status)
	}
}

func TestProcess_RetryThenSucceed(t *testing.T) {
	var calls int32
	bp := NewBatchProcessor[int, int](WithRetryPolicy(2, time.Millisecond))

	res, err := bp.Process(context.Background(), []int{7}, func(ctx context.Context, item int) (int, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return 0, errors.New("transient")
		}
		return item, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 3, res.Results[0].Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestProcess_PanicBecomesFailure(t *testing.T) {
	bp := NewBatchProcessor[int, int](WithMaxConcurrency(2))

	res, err := bp.Process(context.Background(), []int{1, 2, 3}, func(ctx context.Context, item int) (int, error) {
		if item == 2 {
			panic("boom")
		}
		return item, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, ItemStatusFailed, res.Results[1].Status)
	assert.Contains(t, res.Results[1].Error.Error(), "boom")
}

func TestProcess_Backpressure(t *testing.T) {
	bp := NewBatchProcessor[int, int](WithBackpressureThreshold(2))
	_, err := bp.Process(context.Background(), []int{1, 2, 3}, func(ctx context.Context, item int) (int, error) {
		return item, nil
	})
	assert.ErrorIs(t, err, ErrBackpressure)
}

func TestProcess_RecordsMetrics(t *testing.T) {
	m := &recordingMetrics{}
	bp := NewBatchProcessor[int, int](WithName("enumeration"), WithBatchMetrics(m), WithMaxConcurrency(3))

	_, err := bp.Process(context.Background(), []int{1, 2}, func(ctx context.Context, item int) (int, error) {
		if item == 2 {
			return 0, errors.New("nope")
		}
		return item, nil
	})
	require.NoError(t, err)
	require.Len(t, m.batches, 1)
	assert.Equal(t, "enumeration", m.batches[0].BatchName)
	assert.Equal(t, 2, m.batches[0].TotalItems)
	assert.Equal(t, 1, m.batches[0].FailedItems)
	assert.Equal(t, 3, m.batches[0].MaxConcurrency)
}

func TestShutdown_RejectsNewBatches(t *testing.T) {
	bp := NewBatchProcessor[int, int]()
	require.NoError(t, bp.Shutdown(context.Background()))

	_, err := bp.Process(context.Background(), []int{1}, func(ctx context.Context, item int) (int, error) {
		return item, nil
	})
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestItemStatus_String(t *testing.T) {
	assert.Equal(t, "SUCCESS", ItemStatusSuccess.String())
	assert.Equal(t, "TIMEOUT", ItemStatusTimeout.String())
	assert.Equal(t, "UNKNOWN(9)", ItemStatus(9).String())
}

func TestCalculateBackoff_Capped(t *testing.T) {
	p := &RetryPolicy{InitialBackoff: 10 * time.Millisecond, MaxBackoff: 40 * time.Millisecond, BackoffMultiplier: 2}
	d := calculateBackoff(10, p)
	assert.LessOrEqual(t, d, 50*time.Millisecond)
	assert.GreaterOrEqual(t, d, 30*time.Millisecond)
	assert.Zero(t, calculateBackoff(1, nil))
}

//Personal.AI order the ending
