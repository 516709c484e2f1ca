package ingest

import (
	"context"
	"os"
	"time"

	"github.com/avaldes/ragdocs/internal/config"
	"github.com/avaldes/ragdocs/internal/domain/commonModels"
	"github.com/avaldes/ragdocs/internal/domain/jobModel"
	"github.com/avaldes/ragdocs/internal/rag/embedding"
	"github.com/avaldes/ragdocs/internal/rag/vectorDB"
	"github.com/avaldes/ragdocs/pkg/logx"
)

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

var logger *logx.Logger

func ProcessDocumentIngestion(ctx context.Context, job jobModel.Job, e embedding.Embedder, vectorDatabase vectorDB.DataProcessor, ledger commonModels.ChunkLedger) jobModel.Job {
	logger = logx.NewLogger("Document Ingestion")
	log := logger.With("traceId", job.TraceId)

	docName := job.JobPayload.IngestFileName
	docPath := job.JobPayload.IngestURL
	namespace := job.JobPayload.Namespace
	if namespace == "" {
		namespace = config.DefaultNamespace
		job.JobPayload.Namespace = namespace
	}

	log.Debug("Processing document", "filename", docName, "path", docPath, "namespace", namespace)

	job.CurrentStep = jobModel.IngestProcessing
	err := vectorDatabase.CreateCollection(ctx, config.ChunkCollectionName)
	if err != nil {
		log.Error("Error creating collection", "error", err)
		job.Status = jobModel.JobStatusError
		return job
	}

	docType := getDocType(docPath)
	if docType == commonModels.ERR {
		log.Error("Unsupported document type", "path", docPath)
		job.Status = jobModel.JobStatusError
		return job
	}

	doc := commonModels.Document{
		Id:                  job.Id,
		Name:                docName,
		Namespace:           namespace,
		LastIngestTimestamp: time.Now(),
		ContentType:         docType,
	}

	rawPages, err := extractText(docPath, doc.ContentType)
	if err != nil {
		log.Error("Error processing document", "error", err)
		job.Status = jobModel.JobStatusError
		job.Error.Message = "Error extracting document content"
		return job
	}

	log.Debug("Extracted document", "pages", len(rawPages))
	chunks := PrepareChunks(rawPages, doc)

	log.Debug("Prepared chunks", "count", len(chunks))
	indexed, skipped, err := BatchIngest(ctx, chunks, vectorDatabase, e, ledger)
	if err != nil {
		job.Status = jobModel.JobStatusError
		log.Error("Error processing document", "error", err)
		return job
	}

	job.JobPayload.IndexedChunks = indexed
	job.JobPayload.SkippedChunks = skipped

	err = os.Remove(docPath)
	if err != nil {
		log.Error("Error removing file", "error", err)
	}
	job.Status = jobModel.JobStatusComplete
	return job
}
