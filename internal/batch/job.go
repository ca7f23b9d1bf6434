// Package batch runs enrichment over many records in bounded concurrent
// chunks and publishes job progress to any number of observers.
package batch

import (
	"math"
	"sync"
	"time"

	"github.com/sells-group/lead-engine/internal/model"
)

// subscriberBuffer is the per-observer queue depth. When full, the oldest
// pending update is dropped.
const subscriberBuffer = 16

// Job owns the counters and observers of one batch run.
type Job struct {
	id       string
	mu       sync.Mutex
	progress model.BatchJobProgress
	aborted  bool
	subs     map[int]chan model.BatchJobProgress
	nextSub  int
	done     chan struct{}
}

// NewJob creates a queued job.
func NewJob(id string) *Job {
	return &Job{
		id:       id,
		progress: model.BatchJobProgress{JobID: id, Status: model.JobQueued},
		subs:     make(map[int]chan model.BatchJobProgress),
		done:     make(chan struct{}),
	}
}

// ID returns the job id.
func (j *Job) ID() string {
	return j.id
}

// Snapshot returns a copy of the current progress.
func (j *Job) Snapshot() model.BatchJobProgress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

// Done is closed once the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Subscribe attaches an observer. The current state is delivered first,
// followed by every published update. The channel is closed after the
// terminal update or when the returned cancel func is called.
func (j *Job) Subscribe() (<-chan model.BatchJobProgress, func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ch := make(chan model.BatchJobProgress, subscriberBuffer)
	ch <- j.snapshotLocked()
	if j.progress.Status.Terminal() {
		close(ch)
		return ch, func() {}
	}

	id := j.nextSub
	j.nextSub++
	j.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			j.mu.Lock()
			defer j.mu.Unlock()
			if c, ok := j.subs[id]; ok {
				delete(j.subs, id)
				close(c)
			}
		})
	}
}

// Abort asks the job to stop after the chunk in flight. It has no effect
// once the job is terminal.
func (j *Job) Abort() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.progress.Status.Terminal() {
		j.aborted = true
	}
}

// Aborted reports whether Abort was called.
func (j *Job) Aborted() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.aborted
}

func (j *Job) begin(now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.Status = model.JobProcessing
	j.progress.StartedAt = &now
}

func (j *Job) setTotal(total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.TotalItems = total
	j.publishLocked()
}

func (j *Job) setCurrent(label string) {
	j.mu.Lock()
	j.progress.CurrentItem = label
	j.mu.Unlock()
}

func (j *Job) record(success bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.ProcessedItems++
	if success {
		j.progress.SuccessfulItems++
	} else {
		j.progress.FailedItems++
	}
}

func (j *Job) publish() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.publishLocked()
}

// finish moves the job to a terminal status, delivers the final update
// and closes every observer.
func (j *Job) finish(status model.JobStatus, errMsg string, now time.Time) model.BatchJobProgress {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.progress.Status.Terminal() {
		return j.snapshotLocked()
	}

	j.progress.Status = status
	j.progress.Error = errMsg
	j.progress.Aborted = j.aborted && status == model.JobCompleted &&
		j.progress.ProcessedItems < j.progress.TotalItems
	j.progress.CurrentItem = ""
	j.progress.FinishedAt = &now
	j.publishLocked()

	for id, ch := range j.subs {
		close(ch)
		delete(j.subs, id)
	}
	close(j.done)
	return j.snapshotLocked()
}

func (j *Job) publishLocked() {
	p := j.snapshotLocked()
	for _, ch := range j.subs {
		deliver(ch, p)
	}
}

func (j *Job) snapshotLocked() model.BatchJobProgress {
	p := j.progress
	// An empty batch only reads as complete once it has actually completed.
	if p.TotalItems > 0 || p.Status == model.JobCompleted {
		p.PercentComplete = Percent(p.ProcessedItems, p.TotalItems)
	}
	return p
}

// deliver sends p without blocking, discarding the oldest queued update
// when the observer has fallen behind.
func deliver(ch chan model.BatchJobProgress, p model.BatchJobProgress) {
	for {
		select {
		case ch <- p:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Percent returns round(processed/total*100). An empty batch is 100%.
func Percent(processed, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(processed) / float64(total) * 100))
}
