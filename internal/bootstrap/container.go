package bootstrap

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"paperchat-be/internal/config"
	"paperchat-be/internal/controller"
	"paperchat-be/internal/ingest"
	"paperchat-be/internal/pkg/logger"
	"paperchat-be/internal/registry"
	"paperchat-be/internal/retrieval"
	"paperchat-be/internal/service"
	"paperchat-be/internal/status"
	"paperchat-be/internal/websocket"
	"paperchat-be/pkg/chunker"
	"paperchat-be/pkg/docstore"
	"paperchat-be/pkg/embedding"
	"paperchat-be/pkg/embedding/openai"
	"paperchat-be/pkg/extractor"
	"paperchat-be/pkg/llm/factory"
	pktNats "paperchat-be/pkg/nats"
	"paperchat-be/pkg/papers"
	"paperchat-be/pkg/rag"
)

type Container struct {
	// Controllers
	SessionController  controller.ISessionController
	DocumentController controller.IDocumentController
	ChatController     controller.IChatController
	StatusController   controller.IStatusController

	// Background components (exposed for main.go lifecycle handling)
	Pipeline     *ingest.Pipeline
	WebSocketHub *websocket.Hub
	Registry     *registry.Registry
	Logger       logger.ILogger
}

// NewContainer wires every component. db may be nil; paper metadata
// enrichment is simply disabled without it.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. AI providers
	var embeddingProvider embedding.Provider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	case "openai":
		var err error
		embeddingProvider, err = openai.NewProvider(cfg.Ai.OpenAIBaseURL, cfg.Ai.EmbeddingModel, "none")
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize OpenAI embedding provider: %v", err)
		}
		log.Printf("[INFO] Using Embedding Provider: OPENAI-compatible (%s)", cfg.Ai.EmbeddingModel)
	default:
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: GEMINI (%s)", cfg.Ai.EmbeddingModel)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GeminiAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 3. Infrastructure
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	wsLogger := logger.NewIsolatedLogger("logs/status.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 4. Session registry
	reg := registry.New(cfg.Session.IdleTTL, cfg.Session.SweepInterval, sysLogger)

	// 5. Ingestion pipeline
	store := docstore.NewHTTPAdapter(cfg.Ingest.DocStoreBaseURL, cfg.Ingest.MaxUploadBytes, cfg.Ingest.FetchTimeout)
	textExtractor := extractor.NewHTTPExtractor(cfg.Ingest.ExtractorBaseURL, cfg.Ingest.ExtractTimeout)
	embedWorker := chunker.NewWorker(
		embeddingProvider,
		cfg.Ingest.ChunkSize,
		cfg.Ingest.ChunkOverlap,
		cfg.Ingest.EmbedBatchSize,
		cfg.Ingest.EmbedRetries,
		cfg.Ingest.EmbedTimeout,
	)

	var eventPublisher ingest.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}

	pipeline, err := ingest.NewPipeline(reg, store, textExtractor, embedWorker, eventPublisher, wsHub, sysLogger, cfg.Ingest)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize ingestion pipeline: %v", err)
	}

	// 6. Retrieval + chat
	var paperLookup papers.Lookup
	if db != nil {
		paperLookup = papers.NewGormLookup(db)
	}

	engine := retrieval.NewEngine(reg, embeddingProvider, paperLookup, sysLogger, cfg.Retrieval)
	orchestrator := rag.NewOrchestrator(reg, engine, llmProvider, sysLogger, cfg.Chat, cfg.Retrieval)

	// 7. Services
	sessionService := service.NewSessionService(reg, eventPublisher, wsHub, sysLogger)
	documentService := service.NewDocumentService(reg, pipeline, cfg.Ingest)
	chatService := service.NewChatService(reg, orchestrator)
	tracker := status.NewTracker(reg, pipeline)

	// 8. Controllers
	return &Container{
		SessionController:  controller.NewSessionController(sessionService),
		DocumentController: controller.NewDocumentController(documentService),
		ChatController:     controller.NewChatController(chatService, sysLogger),
		StatusController:   controller.NewStatusController(tracker, reg, wsHub, sysLogger),

		Pipeline:     pipeline,
		WebSocketHub: wsHub,
		Registry:     reg,
		Logger:       sysLogger,
	}
}
