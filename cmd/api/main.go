// @title           Document RAG API
// @version         1.0
// @description     This API ingests documents and answers questions over them asynchronously
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/avaldes/ragdocs/internal/adapter/utils"
	"github.com/avaldes/ragdocs/internal/config"
	"github.com/avaldes/ragdocs/internal/data/store"
	"github.com/avaldes/ragdocs/internal/domain/commonModels"
	jobmodel "github.com/avaldes/ragdocs/internal/domain/jobModel"
	"github.com/avaldes/ragdocs/internal/handlers"
	"github.com/avaldes/ragdocs/internal/job"
	"github.com/avaldes/ragdocs/internal/mcpserver"
	"github.com/avaldes/ragdocs/internal/rag"
	"github.com/avaldes/ragdocs/internal/rag/embedding"
	"github.com/avaldes/ragdocs/internal/rag/embedding/googleEmbedding"
	"github.com/avaldes/ragdocs/internal/rag/embedding/openaiEmbedding"
	"github.com/avaldes/ragdocs/internal/rag/ingest"
	"github.com/avaldes/ragdocs/internal/rag/llm"
	"github.com/avaldes/ragdocs/internal/rag/llm/gemini"
	"github.com/avaldes/ragdocs/internal/rag/llm/openaiLLM"
	"github.com/avaldes/ragdocs/internal/rag/vectorDB/qdrantDB"
	"github.com/avaldes/ragdocs/internal/server"
	"github.com/avaldes/ragdocs/internal/worker"
	"github.com/avaldes/ragdocs/pkg/logx"
	"github.com/joho/godotenv"
)

var (
	listenAddr        string
	mcpMode           bool
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	_ = godotenv.Load()

	logx.Init()
	var logger = logx.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.BoolVar(&mcpMode, "mcp", false, "serve tools over stdio instead of HTTP")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and the backing stores
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	logger.Info("Starting job service")

	jobStore := store.GetRedisJobStore(serviceContext)
	messageStore := store.GetRedisMessageStore(serviceContext)
	if jobStore == nil || messageStore == nil {
		logger.Error("Redis stores are offline")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.MessageStore = store.InitMessageStore()
	} else {
		serviceConfig.JobStore = jobStore
		serviceConfig.MessageStore = messageStore
	}
	service := job.InitJobService(serviceConfig)

	var chunkLedger commonModels.ChunkLedger
	if redisLedger := store.GetRedisChunkLedger(serviceContext); redisLedger != nil {
		chunkLedger = redisLedger
	} else {
		logger.Error("Redis chunk ledger is offline, duplicates are only tracked in memory")
		chunkLedger = store.InitInMemoryChunkLedger()
	}

	vectorDB := qdrantDB.GetQdrantClient(serviceContext)
	embeddingService, llmProvider := buildProvider(serviceContext)

	if vectorDB == nil || embeddingService == nil || llmProvider == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "VectorDB", vectorDB != nil, "EmbeddingService", embeddingService != nil, "LLMProvider", llmProvider != nil)
		return
	}

	ragService := rag.NewService(vectorDB, llmProvider, embeddingService, chunkLedger)

	handlers.InitJobHandler(service)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	if scanDir := os.Getenv("AUTO_INGEST_DIR"); scanDir != "" {
		go autoIngest(scanDir, logger)
	}

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)

	if mcpMode {
		go func() {
			if err := mcpserver.Run(serviceContext); err != nil {
				logger.Error("MCP server exited", "error", err)
			}
			gracefulShutdown <- syscall.SIGTERM
		}()
	} else {
		go server.CreateServer(listenAddr)
	}

	<-stopExecution
	logger.Info("Server stopped")
}

// buildProvider picks the embedding and generation backends from the
// PROVIDER env var. Google is the default.
func buildProvider(ctx context.Context) (embedding.Embedder, llm.Provider) {
	switch strings.ToLower(config.GetEnv("PROVIDER", "google")) {
	case "openai":
		apikey := os.Getenv("OPENAI_API_KEY")
		return openaiEmbedding.GetOpenAIEmbeddingClient(config.OpenAIEmbeddingModel, apikey),
			openaiLLM.GetOpenAIClient(config.OpenAIChatModel, apikey)
	default:
		apikey := config.GetEnv("GOOGLE_API_KEY", os.Getenv("GEMINI_API_KEY"))
		return googleEmbedding.GetGoogleEmbeddingClient(ctx, config.GoogleEmbeddingModel, apikey),
			gemini.GetGeminiClient(ctx, config.GeminiModelName, apikey)
	}
}

func autoIngest(scanDir string, logger *logx.Logger) {
	stageDir, err := handlers.TargetDirectory()
	if err != nil {
		logger.Error("Cannot prepare staging directory for auto ingestion", "error", err)
		return
	}
	jobStatus := func(jobId string) (jobmodel.JobStatus, bool) {
		job, found := handlers.GetJobStatus(jobId, utils.GetNewUUID())
		return job.Status, found
	}
	result, err := ingest.ScanAndQueue(scanDir, stageDir, handlers.EnqueueIngest, jobStatus)
	if err != nil {
		logger.Error("Auto ingestion scan failed", "dir", scanDir, "error", err)
		return
	}
	logger.Info("Auto ingestion scan finished", "scanned", result.Scanned, "queued", result.Queued, "indexed", result.Indexed)
}
