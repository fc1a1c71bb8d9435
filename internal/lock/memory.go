package lock

import (
	"context"
	"sync"
	"time"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/google/uuid"
)

type memoryEntry struct {
	token   string
	expires time.Time
}

// MemoryLocker is the single-process Locker used when Redis is not configured.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryEntry
	clock func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held:  make(map[string]memoryEntry),
		clock: time.Now,
	}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, models.ErrLockHeld
	}

	token := uuid.New().String()
	l.held[key] = memoryEntry{token: token, expires: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if e, ok := l.held[key]; ok && e.token == token {
				delete(l.held, key)
			}
		})
	}, nil
}

var _ Locker = (*MemoryLocker)(nil)
