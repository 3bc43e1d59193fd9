package generate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookvision/bookvision/internal/types"
)

// bookKind keys the active-job table.
type bookKind struct {
	bookID string
	kind   Kind
}

// active tracks the currently live job for a book and kind.
type active struct {
	jobID      string
	generation int
	cancel     context.CancelFunc
}

// Manager owns all generation jobs. Jobs live in memory; generated
// media persists on disk and survives restarts, job records do not.
//
// Starting a job for a book and kind supersedes the previous job for
// that pair: its context is cancelled, its status becomes superseded,
// and any writes it still attempts are discarded by generation stamp.
type Manager struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	live   map[bookKind]*active
	gens   map[bookKind]int
	logger *slog.Logger
}

// NewManager creates an empty job manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		jobs:   make(map[string]*Job),
		live:   make(map[bookKind]*active),
		gens:   make(map[bookKind]int),
		logger: logger,
	}
}

// Start creates a new job for the book and kind, superseding any prior
// job for the same pair. The returned context is cancelled when this
// job is itself superseded or the manager shuts down.
func (m *Manager) Start(ctx context.Context, bookID string, kind Kind) (*Job, context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := bookKind{bookID: bookID, kind: kind}

	if prev, ok := m.live[key]; ok {
		prev.cancel()
		if pj, ok := m.jobs[prev.jobID]; ok && !pj.Status.Terminal() {
			pj.Status = StatusSuperseded
			pj.UpdatedAt = time.Now().UTC()
			m.logger.Info("job superseded", "job_id", pj.ID, "book_id", bookID, "kind", kind)
		}
	}

	m.gens[key]++
	now := time.Now().UTC()
	job := &Job{
		ID:         uuid.New().String(),
		BookID:     bookID,
		Kind:       kind,
		Status:     StatusRequested,
		Generation: m.gens[key],
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.jobs[job.ID] = job

	jobCtx, cancel := context.WithCancel(ctx)
	m.live[key] = &active{jobID: job.ID, generation: job.Generation, cancel: cancel}

	m.logger.Info("job started", "job_id", job.ID, "book_id", bookID, "kind", kind, "generation", job.Generation)
	return job.clone(), jobCtx
}

// Get returns a copy of a job by ID.
func (m *Manager) Get(jobID string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, &types.NotFoundError{Resource: "job", ID: jobID}
	}
	return job.clone(), nil
}

// Latest returns the most recent job for a book and kind.
func (m *Manager) Latest(bookID string, kind Kind) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cur, ok := m.live[bookKind{bookID: bookID, kind: kind}]
	if !ok {
		return nil, &types.NotFoundError{Resource: "job", ID: bookID + "/" + string(kind)}
	}
	return m.jobs[cur.jobID].clone(), nil
}

// update applies fn to the job if the write's generation stamp is still
// current for the job's book and kind. Stale writes from superseded
// workflows are discarded. Returns false when the write was dropped.
func (m *Manager) update(jobID string, generation int, fn func(*Job)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return false
	}
	cur, ok := m.live[bookKind{bookID: job.BookID, kind: job.Kind}]
	if !ok || cur.generation != generation || cur.jobID != jobID {
		m.logger.Debug("discarded stale job write", "job_id", jobID, "generation", generation)
		return false
	}
	if job.Status == StatusSuperseded {
		return false
	}

	fn(job)
	job.UpdatedAt = time.Now().UTC()
	return true
}

// SetRunning transitions a job to running.
func (m *Manager) SetRunning(jobID string, generation int) bool {
	return m.update(jobID, generation, func(j *Job) {
		j.Status = StatusRunning
	})
}

// SetPartial marks a job partial after its first ready artifact.
func (m *Manager) SetPartial(jobID string, generation int) bool {
	return m.update(jobID, generation, func(j *Job) {
		if j.Status == StatusRunning {
			j.Status = StatusPartial
		}
	})
}

// Complete transitions a job to complete.
func (m *Manager) Complete(jobID string, generation int) bool {
	return m.update(jobID, generation, func(j *Job) {
		j.Status = StatusComplete
	})
}

// Fail transitions a job to failed with an error message.
func (m *Manager) Fail(jobID string, generation int, errMsg string) bool {
	return m.update(jobID, generation, func(j *Job) {
		j.Status = StatusFailed
		j.Error = errMsg
	})
}

// Shutdown cancels all live job contexts.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.live {
		cur.cancel()
	}
}
