package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asolanog/conversia/internal/metrics"
	syncer "github.com/asolanog/conversia/internal/sync"
)

// JobStatus represents the state of a background sync job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job tracks one provider sync run.
type Job struct {
	ID          string
	Status      JobStatus
	Progress    int
	Total       int
	Report      *syncer.Report
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	mu       sync.RWMutex
	watchers map[chan Job]struct{}
}

// SyncRunner is the sync engine a job executes. *sync.Syncer satisfies it.
type SyncRunner interface {
	Run(ctx context.Context) (*syncer.Report, error)
}

// JobManager tracks background sync jobs in memory. Jobs are ephemeral;
// a restart forgets them, the synced data itself is durable.
type JobManager struct {
	jobs      map[string]*Job
	mu        sync.RWMutex
	logger    *slog.Logger
	collector *metrics.Collector
}

func NewJobManager(logger *slog.Logger, collector *metrics.Collector) *JobManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobManager{jobs: make(map[string]*Job), logger: logger, collector: collector}
}

// Start creates a job and runs the syncer in the background. Progress from
// the syncer is mirrored into the job and fanned out to watchers.
func (m *JobManager) Start(ctx context.Context, runner SyncRunner) *Job {
	job := &Job{
		ID:        uuid.New().String()[:8], // short id for convenience
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		watchers:  make(map[chan Job]struct{}),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.logger.Info("sync job created", "job_id", job.ID)

	if s, ok := runner.(*syncer.Syncer); ok {
		s.OnProgress = func(p syncer.Progress) {
			job.update(func(j *Job) {
				j.Status = JobStatusRunning
				j.Progress = p.Done
				j.Total = p.Total
			})
		}
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("sync job panicked", "job_id", job.ID, "panic", r)
				m.fail(job, fmt.Errorf("internal panic: %v", r))
			}
		}()

		job.update(func(j *Job) { j.Status = JobStatusRunning })

		report, err := runner.Run(ctx)
		if err != nil {
			m.fail(job, err)
			return
		}
		m.complete(job, report)
	}()

	return job
}

// Get retrieves a job by ID, nil when unknown.
func (m *JobManager) Get(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// List returns all jobs, most recent first.
func (m *JobManager) List() []Job {
	m.mu.RLock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	m.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b *Job) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	out := make([]Job, len(jobs))
	for i, job := range jobs {
		out[i] = job.Snapshot()
	}
	return out
}

func (m *JobManager) complete(job *Job, report *syncer.Report) {
	now := time.Now()
	job.update(func(j *Job) {
		j.Status = JobStatusCompleted
		j.Report = report
		j.CompletedAt = &now
	})
	if m.collector != nil {
		m.collector.RecordSyncRun(now.Sub(job.StartedAt),
			int64(report.ConversationsUpdated), int64(report.MessagesUpdated), int64(len(report.Failed)))
	}
	m.logger.Info("sync job completed",
		"job_id", job.ID,
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed))
}

func (m *JobManager) fail(job *Job, err error) {
	now := time.Now()
	job.update(func(j *Job) {
		j.Status = JobStatusFailed
		j.Error = err.Error()
		j.CompletedAt = &now
	})
	m.logger.Error("sync job failed", "job_id", job.ID, "error", err)
}

// update mutates the job under lock and notifies watchers with a snapshot.
func (j *Job) update(fn func(*Job)) {
	j.mu.Lock()
	fn(j)
	snap := j.snapshotLocked()
	for ch := range j.watchers {
		select {
		case ch <- snap:
		default:
		}
	}
	j.mu.Unlock()
}

// Watch subscribes to job state changes. Updates include terminal states;
// cancel releases the channel.
func (j *Job) Watch() (<-chan Job, func()) {
	ch := make(chan Job, 16)

	j.mu.Lock()
	j.watchers[ch] = struct{}{}
	j.mu.Unlock()

	cancel := func() {
		j.mu.Lock()
		if _, ok := j.watchers[ch]; ok {
			delete(j.watchers, ch)
			close(ch)
		}
		j.mu.Unlock()
	}
	return ch, cancel
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Snapshot returns a thread-safe copy of job state.
func (j *Job) Snapshot() Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.snapshotLocked()
}

func (j *Job) snapshotLocked() Job {
	return Job{
		ID:          j.ID,
		Status:      j.Status,
		Progress:    j.Progress,
		Total:       j.Total,
		Report:      j.Report,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
