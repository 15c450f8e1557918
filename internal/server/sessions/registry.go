package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/timex"
)

// Registry records live sessions so they can be revoked before their
// token expires.
type Registry interface {
	Add(ctx context.Context, accountID, sessionID string, ttl time.Duration) error
	Active(ctx context.Context, sessionID string) (bool, error)
	Remove(ctx context.Context, accountID, sessionID string) error
	RemoveAll(ctx context.Context, accountID string) error
}

type memoryEntry struct {
	accountID string
	expiresAt time.Time
}

// MemoryRegistry keeps sessions in process memory. Used when no Redis URL
// is configured and in tests.
type MemoryRegistry struct {
	mu       sync.Mutex
	now      timex.Clock
	sessions map[string]memoryEntry
}

func NewMemoryRegistry(clock timex.Clock) *MemoryRegistry {
	if clock == nil {
		clock = timex.UTCNow
	}
	return &MemoryRegistry{now: clock, sessions: make(map[string]memoryEntry)}
}

func (r *MemoryRegistry) Add(_ context.Context, accountID, sessionID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = memoryEntry{accountID: accountID, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *MemoryRegistry) Active(_ context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID]
	if !ok {
		return false, nil
	}
	if !e.expiresAt.After(r.now()) {
		delete(r.sessions, sessionID)
		return false, nil
	}
	return true, nil
}

func (r *MemoryRegistry) Remove(_ context.Context, _, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *MemoryRegistry) RemoveAll(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.sessions {
		if e.accountID == accountID {
			delete(r.sessions, id)
		}
	}
	return nil
}
