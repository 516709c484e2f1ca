package store

import (
	"context"
	"sync"

	"github.com/avaldes/ragdocs/internal/domain/commonModels"
)

// InMemoryChunkLedger is the fallback when Redis is offline. Dedup then only
// holds for the lifetime of the process.
type InMemoryChunkLedger struct {
	mu   sync.RWMutex
	seen map[string]commonModels.ChunkRecord
}

func InitInMemoryChunkLedger() *InMemoryChunkLedger {
	return &InMemoryChunkLedger{
		seen: make(map[string]commonModels.ChunkRecord),
	}
}

func (l *InMemoryChunkLedger) Seen(ctx context.Context, namespace string, contentHash string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[namespace+":"+contentHash]
	return ok, nil
}

func (l *InMemoryChunkLedger) Record(ctx context.Context, records []commonModels.ChunkRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range records {
		l.seen[rec.Namespace+":"+rec.ContentHash] = rec
	}
	return nil
}
