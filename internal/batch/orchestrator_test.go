package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-engine/internal/metrics"
	"github.com/sells-group/lead-engine/internal/model"
)

func items(n int) Source {
	return SourceFunc(func(_ context.Context) ([]Item, error) {
		out := make([]Item, n)
		for i := range out {
			out[i] = Item{ID: fmt.Sprintf("c%d", i+1), Label: fmt.Sprintf("Contact %d", i+1)}
		}
		return out, nil
	})
}

func succeed() Processor {
	return ProcessorFunc(func(_ context.Context, _ Item) error { return nil })
}

type statusLog struct {
	mu      sync.Mutex
	entries map[string]model.EnrichmentStatus
	reasons map[string]string
	err     error
}

func newStatusLog() *statusLog {
	return &statusLog{entries: map[string]model.EnrichmentStatus{}, reasons: map[string]string{}}
}

func (s *statusLog) SetItemStatus(_ context.Context, item Item, status model.EnrichmentStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries[item.ID] = status
	s.reasons[item.ID] = reason
	return nil
}

func TestRun_AllSucceed(t *testing.T) {
	o := NewOrchestrator(2)
	job := NewJob("j1")

	p, err := o.Run(context.Background(), job, items(3), succeed())
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, p.Status)
	assert.Equal(t, 3, p.TotalItems)
	assert.Equal(t, 3, p.ProcessedItems)
	assert.Equal(t, 3, p.SuccessfulItems)
	assert.Equal(t, 0, p.FailedItems)
	assert.Equal(t, 100, p.PercentComplete)
	assert.False(t, p.Aborted)
	assert.Empty(t, p.CurrentItem)
	require.NotNil(t, p.StartedAt)
	require.NotNil(t, p.FinishedAt)
}

func TestRun_ItemFailureDoesNotFailJob(t *testing.T) {
	statuses := newStatusLog()
	o := NewOrchestrator(10, WithStatusWriter(statuses))
	proc := ProcessorFunc(func(_ context.Context, item Item) error {
		if item.ID == "c2" {
			return errors.New("enrich: all providers failed")
		}
		return nil
	})

	p, err := o.Run(context.Background(), NewJob("j1"), items(3), proc)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, p.Status)
	assert.Equal(t, 3, p.ProcessedItems)
	assert.Equal(t, 2, p.SuccessfulItems)
	assert.Equal(t, 1, p.FailedItems)

	assert.Equal(t, model.EnrichmentCompleted, statuses.entries["c1"])
	assert.Equal(t, model.EnrichmentFailed, statuses.entries["c2"])
	assert.Contains(t, statuses.reasons["c2"], "all providers failed")
	assert.Equal(t, model.EnrichmentCompleted, statuses.entries["c3"])
}

func TestRun_EmptyBatch(t *testing.T) {
	p, err := NewOrchestrator(0).Run(context.Background(), NewJob("j1"), items(0), succeed())
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, p.Status)
	assert.Equal(t, 0, p.TotalItems)
	assert.Equal(t, 100, p.PercentComplete)
}

func TestRun_SourceErrorFailsJob(t *testing.T) {
	src := SourceFunc(func(_ context.Context) ([]Item, error) {
		return nil, errors.New("connection refused")
	})
	p, err := NewOrchestrator(2).Run(context.Background(), NewJob("j1"), src, succeed())
	require.Error(t, err)
	assert.Equal(t, model.JobFailed, p.Status)
	assert.Contains(t, p.Error, "batch: load items")
	assert.Equal(t, 0, p.PercentComplete)
}

func TestRun_ProgressIsMonotonic(t *testing.T) {
	o := NewOrchestrator(3)
	job := NewJob("j1")
	updates, cancel := job.Subscribe()
	defer cancel()

	var seen []model.BatchJobProgress
	done := make(chan struct{})
	go func() {
		defer close(done)
		seen = drain(updates)
	}()

	_, err := o.Run(context.Background(), job, items(10), succeed())
	require.NoError(t, err)
	<-done

	require.NotEmpty(t, seen)
	prev := -1
	for _, p := range seen {
		assert.GreaterOrEqual(t, p.PercentComplete, 0)
		assert.LessOrEqual(t, p.PercentComplete, 100)
		assert.GreaterOrEqual(t, p.ProcessedItems, prev)
		assert.Equal(t, p.ProcessedItems, p.SuccessfulItems+p.FailedItems)
		prev = p.ProcessedItems
	}
	last := seen[len(seen)-1]
	assert.Equal(t, model.JobCompleted, last.Status)
	assert.Equal(t, 10, last.ProcessedItems)
}

func TestRun_ChunkBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	proc := ProcessorFunc(func(_ context.Context, _ Item) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		inFlight.Add(-1)
		return nil
	})

	_, err := NewOrchestrator(4).Run(context.Background(), NewJob("j1"), items(17), proc)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestRun_AbortStopsAtChunkBoundary(t *testing.T) {
	job := NewJob("j1")
	proc := ProcessorFunc(func(_ context.Context, item Item) error {
		if item.ID == "c2" {
			job.Abort()
		}
		return nil
	})

	p, err := NewOrchestrator(2).Run(context.Background(), job, items(6), proc)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, p.Status)
	assert.True(t, p.Aborted)
	assert.Equal(t, 2, p.ProcessedItems)
	assert.Equal(t, 33, p.PercentComplete)
}

func TestRun_AbortDuringFinalChunkIsNotAborted(t *testing.T) {
	job := NewJob("j1")
	proc := ProcessorFunc(func(_ context.Context, item Item) error {
		if item.ID == "c3" {
			job.Abort()
		}
		return nil
	})

	p, err := NewOrchestrator(2).Run(context.Background(), job, items(3), proc)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, p.Status)
	assert.False(t, p.Aborted)
	assert.Equal(t, 3, p.ProcessedItems)
	assert.Equal(t, 100, p.PercentComplete)
}

func TestRun_FatalErrorFailsJob(t *testing.T) {
	var calls atomic.Int32
	proc := ProcessorFunc(func(_ context.Context, item Item) error {
		calls.Add(1)
		if item.ID == "c2" {
			return Fatal(errors.New("store: disk full"))
		}
		return nil
	})

	p, err := NewOrchestrator(1).Run(context.Background(), NewJob("j1"), items(5), proc)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, model.JobFailed, p.Status)
	assert.Equal(t, 2, p.ProcessedItems)
	assert.Equal(t, 1, p.FailedItems)
	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, p.Error, "disk full")
}

func TestRun_StatusWriteFailureIsFatal(t *testing.T) {
	statuses := newStatusLog()
	statuses.err = errors.New("database is locked")

	p, err := NewOrchestrator(1, WithStatusWriter(statuses)).Run(context.Background(), NewJob("j1"), items(3), succeed())
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, model.JobFailed, p.Status)
	assert.Equal(t, 1, p.ProcessedItems)
}

func TestRun_PanicIsItemFailure(t *testing.T) {
	proc := ProcessorFunc(func(_ context.Context, item Item) error {
		if item.ID == "c1" {
			panic("nil profile")
		}
		return nil
	})

	p, err := NewOrchestrator(5).Run(context.Background(), NewJob("j1"), items(2), proc)
	require.NoError(t, err)
	assert.Equal(t, 1, p.FailedItems)
	assert.Equal(t, 1, p.SuccessfulItems)
}

func TestRun_ContextCancelInterrupts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	proc := ProcessorFunc(func(_ context.Context, _ Item) error {
		cancel()
		return nil
	})

	p, err := NewOrchestrator(1).Run(ctx, NewJob("j1"), items(3), proc)
	require.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, model.JobFailed, p.Status)
	assert.Equal(t, 1, p.ProcessedItems)
}

func TestRun_RecordsMetrics(t *testing.T) {
	rec := metrics.New()
	proc := ProcessorFunc(func(_ context.Context, item Item) error {
		if item.ID == "c1" {
			return errors.New("nope")
		}
		return nil
	})

	_, err := NewOrchestrator(2, WithMetrics(rec)).Run(context.Background(), NewJob("j1"), items(2), proc)
	require.NoError(t, err)

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestFatal_Nil(t *testing.T) {
	assert.NoError(t, Fatal(nil))
	assert.False(t, IsFatal(errors.New("x")))
	assert.True(t, IsFatal(fmt.Errorf("wrapped: %w", Fatal(errors.New("x")))))
}
