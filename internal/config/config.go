package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Ai        AIConfig
	Ingest    IngestConfig
	Retrieval RetrievalConfig
	Chat      ChatConfig
	Session   SessionConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini", "ollama" or "openai"
	EmbeddingModel    string
	OllamaBaseURL     string
	OpenAIBaseURL     string
	GeminiAPIKey      string
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string
}

type IngestConfig struct {
	DocStoreBaseURL  string // remote PDF store, e.g. arXiv mirror
	ExtractorBaseURL string // text-extraction sidecar
	MaxUploadBytes   int
	MaxChars         int // lossy cap on extracted text (leading prefix)
	ChunkSize        int
	ChunkOverlap     int
	EmbedBatchSize   int
	EmbedRetries     int
	FetchTimeout     time.Duration
	ExtractTimeout   time.Duration
	EmbedTimeout     time.Duration
	Workers          int // global ingestion worker pool size
}

type RetrievalConfig struct {
	TopK      int
	Threshold float64
	Timeout   time.Duration
}

type ChatConfig struct {
	HistoryWindow     int
	CompletionTimeout time.Duration
}

type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-004"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "http://localhost:8080/v1"),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
		},
		Ingest: IngestConfig{
			DocStoreBaseURL:  getEnv("DOCSTORE_BASE_URL", "https://arxiv.org"),
			ExtractorBaseURL: getEnv("EXTRACTOR_BASE_URL", "http://localhost:8070"),
			MaxUploadBytes:   getEnvAsInt("INGEST_MAX_UPLOAD_BYTES", 20*1024*1024),
			MaxChars:         getEnvAsInt("INGEST_MAX_CHARS", 48000),
			ChunkSize:        getEnvAsInt("INGEST_CHUNK_SIZE", 1500),
			ChunkOverlap:     getEnvAsInt("INGEST_CHUNK_OVERLAP", 200),
			EmbedBatchSize:   getEnvAsInt("INGEST_EMBED_BATCH_SIZE", 16),
			EmbedRetries:     getEnvAsInt("INGEST_EMBED_RETRIES", 3),
			FetchTimeout:     getEnvAsDuration("INGEST_FETCH_TIMEOUT", 30*time.Second),
			ExtractTimeout:   getEnvAsDuration("INGEST_EXTRACT_TIMEOUT", 60*time.Second),
			EmbedTimeout:     getEnvAsDuration("INGEST_EMBED_TIMEOUT", 30*time.Second),
			Workers:          getEnvAsInt("INGEST_WORKERS", 8),
		},
		Retrieval: RetrievalConfig{
			TopK:      getEnvAsInt("RETRIEVAL_TOP_K", 5),
			Threshold: getEnvAsFloat("RETRIEVAL_THRESHOLD", 0.35),
			Timeout:   getEnvAsDuration("RETRIEVAL_TIMEOUT", 5*time.Second),
		},
		Chat: ChatConfig{
			HistoryWindow:     getEnvAsInt("CHAT_HISTORY_WINDOW", 10),
			CompletionTimeout: getEnvAsDuration("CHAT_COMPLETION_TIMEOUT", 120*time.Second),
		},
		Session: SessionConfig{
			IdleTTL:       getEnvAsDuration("SESSION_IDLE_TTL", 1*time.Hour),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
