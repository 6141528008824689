package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"medassist/internal/booking"
)

var ErrSessionNotFound = errors.New("booking session not found")

// SessionRepository persists booking workflow snapshots so that a session
// survives a restart of the assistant.
type SessionRepository interface {
	Save(ctx context.Context, snapshot booking.Snapshot) error
	FindByID(ctx context.Context, id string) (*booking.Snapshot, error)
	Delete(ctx context.Context, id string) error
	// DeleteIdleSince removes sessions last updated before cutoff.
	DeleteIdleSince(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
}

type memorySessionRepository struct {
	mu        sync.RWMutex
	snapshots map[string]booking.Snapshot
}

func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{snapshots: make(map[string]booking.Snapshot)}
}

func (r *memorySessionRepository) Save(ctx context.Context, snapshot booking.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot.Submitting = false
	r.snapshots[snapshot.ID] = snapshot
	return nil
}

func (r *memorySessionRepository) FindByID(ctx context.Context, id string) (*booking.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (r *memorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.snapshots[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.snapshots, id)
	return nil
}

func (r *memorySessionRepository) DeleteIdleSince(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.snapshots {
		if s.UpdatedAt.Before(cutoff) {
			delete(r.snapshots, id)
			n++
		}
	}
	return n, nil
}

func (r *memorySessionRepository) Ping(ctx context.Context) error {
	return nil
}

// IDs lists stored session ids, sorted. Used by tests and diagnostics.
func IDs(r SessionRepository) []string {
	m, ok := r.(*memorySessionRepository)
	if !ok {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.snapshots))
	for id := range m.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
