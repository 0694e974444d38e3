package browserstore

import (
	"context"
	"strings"
	"sync"
)

type memoryRepo struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemory keeps session storage in process memory.
func NewMemory() Repository {
	return &memoryRepo{items: make(map[string][]byte)}
}

func (r *memoryRepo) Area(sessionID string) Area {
	return &memoryArea{repo: r, prefix: sessionID + ":"}
}

func (r *memoryRepo) Ping(context.Context) error { return nil }

// Drop deletes every key of the session. Memory has no key expiry, so
// expired sessions are dropped explicitly.
func (r *memoryRepo) Drop(sessionID string) {
	prefix := sessionID + ":"
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.items {
		if strings.HasPrefix(k, prefix) {
			delete(r.items, k)
		}
	}
}

type memoryArea struct {
	repo   *memoryRepo
	prefix string
}

func (a *memoryArea) GetItem(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.repo.mu.RLock()
	defer a.repo.mu.RUnlock()
	v, ok := a.repo.items[a.prefix+key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (a *memoryArea) SetItem(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.repo.mu.Lock()
	a.repo.items[a.prefix+key] = append([]byte(nil), value...)
	a.repo.mu.Unlock()
	return nil
}
