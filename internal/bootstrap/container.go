package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-research-agent-be/internal/config"
	"ai-research-agent-be/internal/controller"
	"ai-research-agent-be/internal/pkg/logger"
	"ai-research-agent-be/internal/repository/unitofwork"
	"ai-research-agent-be/internal/service"
	"ai-research-agent-be/internal/websocket"
	"ai-research-agent-be/pkg/embedding"
	"ai-research-agent-be/pkg/embedding/jina"
	"ai-research-agent-be/pkg/llm/factory"
	"ai-research-agent-be/pkg/rag"

	pktNats "ai-research-agent-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	HealthController   controller.IHealthController
	SessionController  controller.ISessionController
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaEmbeddingModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaEmbeddingModel)
	} else if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = jina.NewJinaProvider(cfg.Ai.JinaAPIKey)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}
	embeddingProvider = embedding.NewCachedProvider(
		embeddingProvider,
		time.Duration(cfg.Ai.EmbeddingCacheTTLMin)*time.Minute,
	)

	apiKey := cfg.Ai.GeminiAPIKey
	if cfg.Ai.LLMProvider == "huggingface" {
		apiKey = cfg.Ai.HuggingFaceAPIKey
	}
	baseURL := cfg.Ai.LLMBaseURL
	if baseURL == "" {
		baseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		baseURL,
		apiKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/ingest.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 5. Services
	retriever := rag.NewRetriever(uowFactory, embeddingProvider, rag.DefaultConfig(), sysLogger)

	publisherService := service.NewPublisherService(cfg.Agent.IngestTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Agent.IngestTopic,
		uowFactory,
		embeddingProvider,
		natsPub,
		wsHub,
		cfg.Agent,
		sysLogger,
	)

	// Relay bus events to websocket clients
	if natsSub != nil {
		notifierService := service.NewNotifierService(natsSub, wsHub, wsLogger)
		if err := notifierService.Start(); err != nil {
			log.Printf("[WARN] Failed to start event notifier: %v", err)
		}
	}

	sessionService := service.NewSessionService(uowFactory)
	documentService := service.NewDocumentService(uowFactory, publisherService, sysLogger)
	researchService := service.NewResearchService(
		uowFactory,
		retriever,
		llmProvider,
		cfg.Agent,
		natsPub,
		sysLogger,
	)

	// 6. Controllers
	return &Container{
		HealthController:   controller.NewHealthController(db),
		SessionController:  controller.NewSessionController(sessionService),
		ChatController:     controller.NewChatController(researchService),
		DocumentController: controller.NewDocumentController(documentService),

		ConsumerService: consumerService,
		WebSocketHub:    wsHub,
	}
}
