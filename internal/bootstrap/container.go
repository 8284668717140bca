package bootstrap

import (
	"log"
	"time"

	"github.com/lxhmx/text2sql/internal/config"
	"github.com/lxhmx/text2sql/internal/controller"
	"github.com/lxhmx/text2sql/internal/pkg/logger"
	"github.com/lxhmx/text2sql/internal/repository/memory"
	"github.com/lxhmx/text2sql/internal/repository/unitofwork"
	"github.com/lxhmx/text2sql/internal/service"
	"github.com/lxhmx/text2sql/pkg/database"
	"github.com/lxhmx/text2sql/pkg/dedup"
	"github.com/lxhmx/text2sql/pkg/llm/factory"
	pktNats "github.com/lxhmx/text2sql/pkg/nats"
	"github.com/lxhmx/text2sql/pkg/sqlguard"
	"github.com/lxhmx/text2sql/pkg/vanna"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	QueryController      controller.IQueryController
	TrainController      controller.ITrainController
	DataManageController controller.IDataManageController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
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

	// NATS (optional: a nil publisher is a no-op)
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			natsPub = pub
		}
	}

	// Redis (optional: without it SQL generation is simply uncached)
	var redisClient *redis.Client
	if cfg.App.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Invalid REDIS_URL, SQL cache disabled: %v", err)
		} else {
			redisClient = redis.NewClient(opts)
		}
	}

	// 3. Model backend
	vannaClient := vanna.WithSQLCache(
		vanna.NewHTTPClient(cfg.Vanna.BaseURL, cfg.Vanna.APIKey),
		redisClient,
		time.Duration(cfg.Vanna.SQLCacheTTLMin)*time.Minute,
	)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Query pipeline pieces
	guard := sqlguard.New(vannaClient)
	executor := database.NewGormExecutor(db)
	sessionRepo := memory.NewSessionRepository(cfg.Train.MaxRounds)
	deduplicator := dedup.New(vannaClient)

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Train.Topic, pubSub)
	queryService := service.NewQueryService(vannaClient, guard, executor, llmProvider, sessionRepo, sysLogger)
	agentService := service.NewAgentService(vannaClient, guard, executor, llmProvider, sessionRepo, sysLogger)
	trainService := service.NewTrainService(vannaClient, deduplicator, cfg.Train.SQLDir, cfg.Train.DocumentDir, sysLogger)
	dataManageService := service.NewDataManageService(uowFactory, vannaClient, publisherService, cfg.Train.SQLDir, cfg.Train.DocumentDir, sysLogger)
	consumerService := service.NewConsumerService(pubSub, cfg.Train.Topic, uowFactory, trainService, natsPub)

	// 6. Controllers
	return &Container{
		QueryController:      controller.NewQueryController(queryService, agentService),
		TrainController:      controller.NewTrainController(trainService),
		DataManageController: controller.NewDataManageController(dataManageService),
		ConsumerService:      consumerService,
	}
}
