package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/model"
)

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = eris.New("batch: job not found")

// DefaultRetention is how long terminal jobs stay observable.
const DefaultRetention = time.Hour

const sinkTimeout = 5 * time.Second

// Sink receives every published snapshot of every job, for example to mirror
// progress into a message bus or a shared cache.
type Sink interface {
	Publish(ctx context.Context, p model.BatchJobProgress) error
}

// Manager runs jobs in the background and keeps them observable until
// their retention expires.
type Manager struct {
	orch      *Orchestrator
	retention time.Duration
	sinks     []Sink
	now       func() time.Time

	mu    sync.Mutex
	jobs  map[string]*Job
	order []string
	wg    sync.WaitGroup
}

// NewManager creates a manager. A non-positive retention uses DefaultRetention.
func NewManager(orch *Orchestrator, retention time.Duration, sinks ...Sink) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Manager{
		orch:      orch,
		retention: retention,
		sinks:     sinks,
		now:       time.Now,
		jobs:      make(map[string]*Job),
	}
}

// Start creates a job and runs it in a goroutine. ctx bounds the job's
// lifetime, so callers pass a process-scoped context rather than a request
// context.
func (m *Manager) Start(ctx context.Context, src Source, proc Processor) *Job {
	job := NewJob(uuid.NewString())

	m.mu.Lock()
	m.pruneLocked()
	m.jobs[job.ID()] = job
	m.order = append(m.order, job.ID())
	m.mu.Unlock()

	if len(m.sinks) > 0 {
		updates, _ := job.Subscribe()
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.forward(ctx, updates)
		}()
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_, _ = m.orch.Run(ctx, job, src, proc)
	}()
	return job
}

func (m *Manager) forward(ctx context.Context, updates <-chan model.BatchJobProgress) {
	base := context.WithoutCancel(ctx)
	for p := range updates {
		for _, s := range m.sinks {
			sctx, cancel := context.WithTimeout(base, sinkTimeout)
			if err := s.Publish(sctx, p); err != nil {
				zap.L().Warn("batch: sink publish failed", zap.String("job_id", p.JobID), zap.Error(err))
			}
			cancel()
		}
	}
}

// Get returns a live or retained job.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	job, ok := m.jobs[id]
	if !ok {
		return nil, eris.Wrapf(ErrJobNotFound, "job %s", id)
	}
	return job, nil
}

// Subscribe attaches an observer to a job.
func (m *Manager) Subscribe(id string) (<-chan model.BatchJobProgress, func(), error) {
	job, err := m.Get(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := job.Subscribe()
	return ch, cancel, nil
}

// Abort stops a job after its in-flight chunk.
func (m *Manager) Abort(id string) (model.BatchJobProgress, error) {
	job, err := m.Get(id)
	if err != nil {
		return model.BatchJobProgress{}, err
	}
	job.Abort()
	return job.Snapshot(), nil
}

// List returns snapshots of all retained jobs, oldest first.
func (m *Manager) List() []model.BatchJobProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	out := make([]model.BatchJobProgress, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.jobs[id].Snapshot())
	}
	return out
}

// Wait blocks until every started job and sink forwarder has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) pruneLocked() {
	cutoff := m.now().Add(-m.retention)
	kept := m.order[:0]
	for _, id := range m.order {
		p := m.jobs[id].Snapshot()
		if p.Status.Terminal() && p.FinishedAt != nil && p.FinishedAt.Before(cutoff) {
			delete(m.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
}
