package history

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/pdf-toolkit/pkg/utils"
)

// MemoryStore keeps history in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	limit   int
	byOwner map[string][]Entry // newest first
}

// NewMemoryStore returns a store keeping limit entries per owner
// (DefaultLimit when limit < 1).
func NewMemoryStore(limit int) *MemoryStore {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &MemoryStore{limit: limit, byOwner: make(map[string][]Entry)}
}

func (m *MemoryStore) Add(ctx context.Context, e Entry) (Entry, error) {
	if err := validate(e); err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = utils.GenerateUUID()
	}
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	entries := append([]Entry{e}, m.byOwner[e.Owner]...)
	if len(entries) > m.limit {
		entries = entries[:m.limit]
	}
	m.byOwner[e.Owner] = entries
	return e, nil
}

func (m *MemoryStore) Get(ctx context.Context, owner, id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.byOwner[owner] {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, notFound(id)
}

func (m *MemoryStore) List(ctx context.Context, owner string, f Filter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Entry{}
	for _, e := range m.byOwner[owner] {
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) Remove(ctx context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.byOwner[owner]
	for i, e := range entries {
		if e.ID == id {
			m.byOwner[owner] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return notFound(id)
}

func (m *MemoryStore) Clear(ctx context.Context, owner string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.byOwner[owner])
	delete(m.byOwner, owner)
	return n, nil
}

func (m *MemoryStore) Stats(ctx context.Context, owner string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ComputeStats(m.byOwner[owner]), nil
}
