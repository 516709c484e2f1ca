package commonModels

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type Document struct {
	Id                  string    `json:"source_doc_id"`
	Name                string    `json:"doc_name"`
	Namespace           string    `json:"namespace"`
	LastIngestTimestamp time.Time `json:"ingested_at"`
	ContentType         DocType   `json:"contentType"`
}

type DocChunk struct {
	Doc            Document
	ChunkId        string `json:"chunk_id"`
	ContentHash    string `json:"content_hash"`
	Chunk          string `json:"content"`
	PageNum        int    `json:"page_num"`
	ChunkPageOrder int    `json:"chunk_order"`
	EmbeddingModel string `json:"embeddingModel"`
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"

// HashChunk is the chunk identity used for deduplication. The namespace is
// part of the hash, so the same text ingested under two namespaces indexes
// twice.
func HashChunk(namespace string, content string) string {
	sum := sha256.Sum256([]byte(namespace + ":" + content))
	return hex.EncodeToString(sum[:])
}

// ChunkRecord is what the ledger remembers about an indexed chunk.
type ChunkRecord struct {
	ContentHash string    `json:"content_hash"`
	Namespace   string    `json:"namespace"`
	Source      string    `json:"source"`
	PageNum     int       `json:"page_num"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// ChunkLedger tracks which chunk hashes are already indexed. A hash is
// recorded only after its vectors have been upserted, so a failed batch gets
// re-indexed on retry.
type ChunkLedger interface {
	Seen(ctx context.Context, namespace string, contentHash string) (bool, error)
	Record(ctx context.Context, records []ChunkRecord) error
}
