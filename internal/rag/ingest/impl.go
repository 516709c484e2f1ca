package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/avaldes/ragdocs/internal/adapter/utils"
	"github.com/avaldes/ragdocs/internal/config"
	"github.com/avaldes/ragdocs/internal/domain/commonModels"
	"github.com/avaldes/ragdocs/internal/metrics"
	"github.com/avaldes/ragdocs/internal/rag/embedding"
	"github.com/avaldes/ragdocs/internal/rag/vectorDB"
	"github.com/avaldes/ragdocs/pkg/logx"
)

//splitter

func splitTextIntoChunks(text string, limit int, overlap int) []string {
	var chunks []string

	if len(text) <= limit {
		return []string{text}
	}

	// Separators ordered from "best" to "worst" for semantic meaning
	separators := []string{"\n\n", "\n", ". ", " ", ""}

	var splitChar string
	found := false
	for _, s := range separators {
		if strings.Contains(text, s) {
			splitChar = s
			found = true
			break
		}
	}

	if !found {
		// Hard cut if no separator found (rare)
		return []string{text[:limit]}
	}

	parts := strings.Split(text, splitChar)
	var currentChunk strings.Builder

	for _, part := range parts {
		if currentChunk.Len()+len(part)+len(splitChar) > limit {
			if currentChunk.Len() > 0 {
				chunks = append(chunks, currentChunk.String())
			}

			// Start the next chunk with the tail of the previous one
			overlapContent := ""
			if currentChunk.Len() > overlap {
				overlapContent = currentChunk.String()[currentChunk.Len()-overlap:]
			}

			currentChunk.Reset()
			currentChunk.WriteString(overlapContent)
		}

		if currentChunk.Len() > 0 && splitChar != "" {
			currentChunk.WriteString(splitChar)
		}
		currentChunk.WriteString(part)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, currentChunk.String())
	}

	return chunks
}

func getDocType(docPath string) commonModels.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return commonModels.PDF
	case ".txt":
		return commonModels.TXT
	case ".docx", ".rtf":
		return commonModels.DOCX
	default:
		return commonModels.ERR
	}
}

func extractText(path string, contentType commonModels.DocType) ([]rawPage, error) {
	switch contentType {
	case commonModels.PDF:
		return extractPDF(path)
	case commonModels.DOCX, commonModels.TXT:
		return extractdocxTxtRtf(path)

	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

// PrepareChunks splits every page and stamps each chunk with its dedup hash.
// Repeats inside the same document collapse to the first occurrence.
func PrepareChunks(pages []rawPage, doc commonModels.Document) []commonModels.DocChunk {
	var allChunks []commonModels.DocChunk

	maxChunkSize := config.ChunkSize()
	overlap := config.ChunkOverlap()
	seenInDoc := make(map[string]bool)

	for _, page := range pages {
		stringChunks := splitTextIntoChunks(page.Content, maxChunkSize, overlap)

		for i, text := range stringChunks {
			if strings.TrimSpace(text) == "" {
				continue
			}
			hash := commonModels.HashChunk(doc.Namespace, text)
			if seenInDoc[hash] {
				continue
			}
			seenInDoc[hash] = true

			allChunks = append(allChunks, commonModels.DocChunk{
				Doc:            doc,
				ChunkId:        utils.GetNewUUID(),
				ContentHash:    hash,
				Chunk:          text,
				PageNum:        page.Number,
				ChunkPageOrder: i,
			})
		}
	}

	return allChunks
}

// filterSeenChunks drops chunks the ledger has already indexed. A ledger
// lookup failure keeps the chunk: double-indexing is an upsert no-op, losing
// a chunk is not.
func filterSeenChunks(ctx context.Context, chunks []commonModels.DocChunk, ledger commonModels.ChunkLedger, log *logx.Logger) ([]commonModels.DocChunk, int) {
	fresh := make([]commonModels.DocChunk, 0, len(chunks))
	skipped := 0
	for _, chunk := range chunks {
		seen, err := ledger.Seen(ctx, chunk.Doc.Namespace, chunk.ContentHash)
		if err != nil {
			log.Error("Ledger lookup failed, keeping chunk", "hash", chunk.ContentHash, "error", err)
			seen = false
		}
		if seen {
			skipped++
			continue
		}
		fresh = append(fresh, chunk)
	}
	return fresh, skipped
}

func toRecords(chunks []commonModels.DocChunk) []commonModels.ChunkRecord {
	records := make([]commonModels.ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = commonModels.ChunkRecord{
			ContentHash: chunk.ContentHash,
			Namespace:   chunk.Doc.Namespace,
			Source:      chunk.Doc.Name,
			PageNum:     chunk.PageNum,
			IngestedAt:  chunk.Doc.LastIngestTimestamp,
		}
	}
	return records
}

// BatchIngest embeds and upserts the chunks the ledger has not seen yet, in
// batches of 100. Hashes are recorded after their batch upserts, so an
// interrupted run re-indexes only the unfinished batches.
func BatchIngest(ctx context.Context, chunks []commonModels.DocChunk, vectorDB vectorDB.DataProcessor, embedder embedding.Embedder, ledger commonModels.ChunkLedger) (indexed int, skipped int, err error) {
	logger = logx.NewLogger("Batch Ingestion")
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	fresh, skipped := filterSeenChunks(ctx, chunks, ledger, log)
	metrics.AddSkippedChunks(skipped)
	log.Debug("Dedup filter", "total", len(chunks), "fresh", len(fresh), "skipped", skipped)

	batchSize := 100
	isHugeDataSet := len(fresh) > 1000000 //only relevant for enormous documents

	for i := 0; i < len(fresh); i += batchSize {
		end := i + batchSize
		if end > len(fresh) {
			end = len(fresh)
		}

		currentBatch := fresh[i:end]

		texts := make([]string, len(currentBatch))
		for j, c := range currentBatch {
			texts[j] = c.Chunk
		}

		log.Debug("Starting embedding call", "batch length", len(currentBatch))
		vectors, err := embedder.BatchEmbedding(ctx, texts, isHugeDataSet)
		if err != nil {
			return indexed, skipped, fmt.Errorf("embedding batch failed: %w", err)
		}

		err = vectorDB.UpsertBatch(ctx, config.ChunkCollectionName, currentBatch, vectors)
		if err != nil {
			return indexed, skipped, fmt.Errorf("upserting to qdrant failed: %w", err)
		}

		// Only now are these hashes safe to remember.
		if err := ledger.Record(ctx, toRecords(currentBatch)); err != nil {
			return indexed, skipped, fmt.Errorf("recording chunk hashes failed: %w", err)
		}
		indexed += len(currentBatch)
	}

	metrics.AddIndexedChunks(indexed)
	return indexed, skipped, nil
}
