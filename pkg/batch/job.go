// Package batch runs tools asynchronously. Inputs and outputs live in blob
// storage and jobs travel over a Service Bus queue.
package batch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/processor"
)

// Status of a job.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Done reports whether the job reached a final state.
func (s Status) Done() bool { return s == StatusSuccess || s == StatusError }

// BlobRef points at one stored file.
type BlobRef struct {
	Name        string `json:"name"`
	Blob        string `json:"blob"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Job is one asynchronous tool run.
type Job struct {
	ID          string           `json:"id"`
	Owner       string           `json:"-"`
	Tool        string           `json:"tool"`
	Params      processor.Params `json:"params"`
	Status      Status           `json:"status"`
	Inputs      []BlobRef        `json:"inputs"`
	Outputs     []BlobRef        `json:"outputs,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
	Error       string           `json:"error,omitempty"`
	ErrorCode   string           `json:"errorCode,omitempty"`
	Attempts    int              `json:"attempts"`
	CreatedAt   time.Time        `json:"createdAt"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

// Output returns the output named name.
func (j Job) Output(name string) (BlobRef, bool) {
	for _, o := range j.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return BlobRef{}, false
}

// JobStore keeps job state.
type JobStore interface {
	Create(ctx context.Context, job Job) error
	// Get returns the job only when it belongs to owner.
	Get(ctx context.Context, owner, id string) (Job, error)
	List(ctx context.Context, owner string) ([]Job, error)
	// Update applies fn to the stored job atomically.
	Update(ctx context.Context, id string, fn func(*Job)) (Job, error)
}

// MemoryJobStore is an in-process JobStore.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewMemoryJobStore returns an empty store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]Job)}
}

func (m *MemoryJobStore) Create(ctx context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; exists {
		return errors.NewBadRequestError("job " + job.ID + " already exists")
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *MemoryJobStore) Get(ctx context.Context, owner, id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok || job.Owner != owner {
		return Job{}, jobNotFound(id)
	}
	return job, nil
}

// List returns the owner's jobs, newest first.
func (m *MemoryJobStore) List(ctx context.Context, owner string) ([]Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := []Job{}
	for _, j := range m.jobs {
		if j.Owner == owner {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(a, b int) bool {
		if jobs[a].CreatedAt.Equal(jobs[b].CreatedAt) {
			return jobs[a].ID > jobs[b].ID
		}
		return jobs[a].CreatedAt.After(jobs[b].CreatedAt)
	})
	return jobs, nil
}

func (m *MemoryJobStore) Update(ctx context.Context, id string, fn func(*Job)) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, jobNotFound(id)
	}
	fn(&job)
	m.jobs[id] = job
	return job, nil
}

func jobNotFound(id string) error {
	return errors.NewNotFoundError("job " + id + " not found")
}
