package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//cache hits below this score are treated as misses
	CacheSimilarityCutoff = 0.97

	EmbeddingOutputDimensionality int32 = 1536
	ChunkCollectionName                 = "doc-chunks"

	//chunking - CHUNK_SIZE / CHUNK_OVERLAP override these
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100

	//retrieval - RETRIEVAL_K overrides
	DefaultRetrievalK = 5

	//queries with no namespace land here, so does the startup scan
	DefaultNamespace = "default"

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//vectorDB
	QdrantHost             = ""
	QdrantPort             = 6333 //http
	QdrantGrpcPort         = 6334
	QdrantUseTLS           = false
	QdrantPoolSize         = 1 //2-5 is preferred for prod according to documentation
	QdrantKeepAliveTimeout = 30 * time.Second

	//generation - TEMPERATURE / MAX_TOKENS override
	ModelTemperature float32 = 0.7
	MaxOutputTokens  int32   = 600

	GeminiModelName      = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel = "gemini-embedding-001"
	OpenAIChatModel      = "gpt-4o-mini"
	OpenAIEmbeddingModel = "text-embedding-3-small"

	SystemPrompt = "You are an expert advisor. From the given context, provide a brief diagnosis, " +
		"actionable recommendations and examples where they apply, and state your assumptions. " +
		"Do not invent information that is not in the context. If information is missing, say so clearly."

	//auth - API_TOKEN holds the bearer token, bypass is for local runs only
	NoAuthBypass = true

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DBs we can use
	RedisJobStore     = 0
	RedisMessageStore = 1
	RedisChunkLedger  = 2

	RedisJobStoreTTL     = 24 * time.Hour
	RedisMessageStoreTTL = 24 * time.Hour

	//auto ingest scan - AUTO_INGEST_DIR overrides, empty disables
	AutoIngestStateFile = ".ingest_state.json"
)

// GetEnv reads key with a fallback, same contract as the usual dotenv helpers.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func GetEnvFloat(key string, fallback float32) float32 {
	v, err := strconv.ParseFloat(os.Getenv(key), 32)
	if err != nil {
		return fallback
	}
	return float32(v)
}

// ChunkSize and ChunkOverlap are read per ingest job so a restart is not
// needed to tune them.
func ChunkSize() int    { return GetEnvInt("CHUNK_SIZE", DefaultChunkSize) }
func ChunkOverlap() int { return GetEnvInt("CHUNK_OVERLAP", DefaultChunkOverlap) }
func RetrievalK() int   { return GetEnvInt("RETRIEVAL_K", DefaultRetrievalK) }

// Temperature and MaxTokens honor the TEMPERATURE / MAX_TOKENS overrides.
func Temperature() float32 { return GetEnvFloat("TEMPERATURE", ModelTemperature) }
func MaxTokens() int32     { return int32(GetEnvInt("MAX_TOKENS", int(MaxOutputTokens))) }

func AuthToken() string     { return os.Getenv("API_TOKEN") }
func RedisPassword() string { return os.Getenv("REDIS_PASSWORD") }
