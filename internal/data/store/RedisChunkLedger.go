package store

import (
	"context"
	"encoding/json"

	"github.com/avaldes/ragdocs/internal/config"
	"github.com/avaldes/ragdocs/internal/data/redisStore"
	"github.com/avaldes/ragdocs/internal/domain/commonModels"
	"github.com/avaldes/ragdocs/pkg/logx"
)

// RedisChunkLedger keeps one set of chunk hashes per namespace plus a hash
// record per chunk. Membership in the set is what Seen checks; the record is
// there for inspection and debugging.
type RedisChunkLedger struct {
	store  *redisStore.Store
	logger *logx.Logger
}

func GetRedisChunkLedger(ctx context.Context) *RedisChunkLedger {
	internal := redisStore.GetRedisStore(ctx, config.RedisChunkLedger)
	if internal == nil {
		return nil
	}
	return &RedisChunkLedger{
		store:  internal,
		logger: logx.NewLogger("ChunkLedger"),
	}
}

func namespaceKey(namespace string) string {
	return "chunks:" + namespace
}

func recordKey(contentHash string) string {
	return "chunk:" + contentHash
}

func (l *RedisChunkLedger) Seen(ctx context.Context, namespace string, contentHash string) (bool, error) {
	found, err := l.store.SetIsMember(ctx, namespaceKey(namespace), contentHash)
	if err != nil {
		l.logger.Error("membership check failed", "namespace", namespace, "err", err)
		return false, err
	}
	return found, nil
}

func (l *RedisChunkLedger) Record(ctx context.Context, records []commonModels.ChunkRecord) error {
	log := l.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := l.store.HashSet(ctx, recordKey(rec.ContentHash),
			"namespace", rec.Namespace,
			"source", rec.Source,
			"meta", data,
		); err != nil {
			log.Error("failed to write chunk record", "hash", rec.ContentHash, "err", err)
			return err
		}
		if err := l.store.SetAdd(ctx, namespaceKey(rec.Namespace), rec.ContentHash); err != nil {
			log.Error("failed to mark chunk as seen", "hash", rec.ContentHash, "err", err)
			return err
		}
	}
	log.Debug("Recorded chunk hashes", "count", len(records))
	return nil
}

func TestChunkLedger(store *redisStore.Store) *RedisChunkLedger {
	return &RedisChunkLedger{
		store:  store,
		logger: logx.NewLogger("test ledger"),
	}
}
