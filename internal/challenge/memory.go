package challenge

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	keyAuth   string
	expiresAt time.Time
}

// MemoryBridge is a process-local Bridge for tests and single-node
// development setups.
type MemoryBridge struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryBridge() *MemoryBridge {
	return &MemoryBridge{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (b *MemoryBridge) Publish(ctx context.Context, token, keyAuth string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[keyPrefix+token] = memoryEntry{keyAuth: keyAuth, expiresAt: b.now().Add(ttl)}
	return nil
}

func (b *MemoryBridge) Resolve(ctx context.Context, token string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[keyPrefix+token]
	if !ok {
		return "", ErrNotFound
	}
	if b.now().After(entry.expiresAt) {
		delete(b.entries, keyPrefix+token)
		return "", ErrNotFound
	}
	return entry.keyAuth, nil
}

func (b *MemoryBridge) Discard(ctx context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, keyPrefix+token)
	return nil
}
