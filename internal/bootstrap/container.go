package bootstrap

import (
	"context"
	"log"

	"ai-research-be/internal/config"
	"ai-research-be/internal/controller"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/internal/repository/memory"
	"ai-research-be/internal/repository/unitofwork"
	"ai-research-be/internal/service"
	"ai-research-be/pkg/embedding"
	"ai-research-be/pkg/graph"
	"ai-research-be/pkg/lease"
	"ai-research-be/pkg/llm/factory"
	"ai-research-be/pkg/llm/ollama"
	"ai-research-be/pkg/research/expansion"
	"ai-research-be/pkg/research/lifecycle"
	"ai-research-be/pkg/research/motivation"
	"ai-research-be/pkg/research/pipeline"
	"ai-research-be/pkg/research/scheduler"
	"ai-research-be/pkg/sources"

	pktNats "ai-research-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ResearchController controller.IResearchController

	// Background Services (Exposed for main.go to run)
	ConsumerService    service.IConsumerService
	EngagementConsumer *service.EngagementConsumer
	Scheduler          *scheduler.Scheduler

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.LogLevel, cfg.App.Environment == "production")
	researchLogger := logger.NewIsolatedLogger(cfg.App.ResearchLogPath, cfg.App.LogLevel)

	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. AI Providers
	embeddingProvider, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Keys.GoogleGemini,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaModel,
	)
	researchReady := true
	if err != nil {
		sysLogger.Error(bootstrapModule, "Failed to initialize embedding provider, scheduler disabled", map[string]interface{}{"error": err.Error()})
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
		researchReady = false
	} else {
		log.Printf("[INFO] Using Embedding Provider: %s", cfg.Ai.EmbeddingProvider)
	}

	llmBaseURL := cfg.Ai.LLMBaseURL
	if llmBaseURL == "" && cfg.Ai.LLMProvider == "ollama" {
		llmBaseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		llmBaseURL,
		cfg.Keys.HuggingFace,
	)
	if err != nil {
		sysLogger.Error(bootstrapModule, "Failed to initialize LLM provider, scheduler disabled", map[string]interface{}{"error": err.Error()})
		llmProvider = ollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.LLMModel)
		researchReady = false
	} else {
		log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	}

	// 4. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		c.closers = append(c.closers, natsSub.Close)
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
	var locker scheduler.Locker
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Cycles run without a lease", err)
	} else {
		locker = lease.NewRedisLocker(rdb, "lease:")
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })

	// 5. Research Collaborators
	store := service.NewResearchStore(uowFactory, cfg.Research.MaxActiveTopics)
	engagementService := service.NewEngagementService(
		uowFactory,
		memory.NewEngagementCache(cfg.Research.EngagementCacheTTL),
		cfg.Research.LifecycleLookback,
		sysLogger,
	)

	searchSources := buildSources(cfg.Sources.Enabled, sourceOptions(cfg), sysLogger)

	graphSearcher := graph.NewSearcher(uowFactory.NewUnitOfWork(context.Background()).GraphRepository(), embeddingProvider)

	// 6. Research Engine
	driveCfg := driveConfig(cfg.Research)
	if err := driveCfg.Validate(); err != nil {
		sysLogger.Error(bootstrapModule, "Invalid drive configuration, scheduler disabled", map[string]interface{}{"error": err.Error()})
		driveCfg = motivation.DefaultConfig()
		researchReady = false
	}
	drives := motivation.NewSystem(driveCfg, engagementService, researchLogger)
	engagementService.SetActivityListener(drives)

	lifecycleManager := lifecycle.NewManager(lifecycleConfig(cfg.Research), engagementService, driveCfg.Engagement, researchLogger)
	expansionService := expansion.NewService(expansionConfig(cfg.Research), graphSearcher, llmProvider, store, researchLogger)
	researchPipeline := pipeline.New(pipelineConfig(cfg.Research), llmProvider, searchSources, store, researchLogger)

	deps := scheduler.Deps{
		Drives:     drives,
		Store:      store,
		Researcher: researchPipeline,
		Expander:   expansionService,
		Lifecycle:  lifecycleManager,
		Locker:     locker,
		Logger:     researchLogger,
	}
	if natsPub != nil {
		deps.Publisher = natsPub
	}
	var sched *scheduler.Scheduler
	if researchReady {
		sched = newResearchScheduler(schedulerConfig(cfg.Research), deps, sysLogger)
	} else {
		sched = disabledScheduler(deps)
	}
	c.Scheduler = sched

	// 7. Services
	publisherService := service.NewPublisherService(cfg.App.TriggerTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.TriggerTopic, sched, sysLogger)
	if natsSub != nil {
		c.EngagementConsumer = service.NewEngagementConsumer(natsSub, engagementService, sysLogger)
	}

	researchService := service.NewResearchService(sched, store, uowFactory, publisherService, sysLogger)

	// 8. Controllers
	c.ResearchController = controller.NewResearchController(researchService, engagementService)

	return c
}

// Close stops the scheduler and releases connections in reverse order.
func (c *Container) Close(ctx context.Context) {
	if err := c.Scheduler.Stop(ctx); err != nil {
		c.Logger.Debug("Container", "Scheduler was not running", nil)
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func sourceOptions(cfg *config.Config) map[string]sources.Options {
	rps := cfg.Sources.RatePerSecond
	return map[string]sources.Options{
		sources.Web:      {BaseURL: cfg.Sources.SearxngURL, RatePerSecond: rps},
		sources.Academic: {BaseURL: cfg.Sources.ArxivURL, RatePerSecond: rps},
		sources.Social:   {BaseURL: cfg.Sources.HackerNewsURL, RatePerSecond: rps},
		sources.Medical:  {BaseURL: cfg.Sources.PubMedURL, APIKey: cfg.Keys.PubMed, RatePerSecond: rps},
	}
}

func driveConfig(r config.ResearchConfig) motivation.Config {
	c := motivation.DefaultConfig()
	c.BoredomRate = r.BoredomRate
	c.CuriosityDecay = r.CuriosityDecay
	c.TirednessDecay = r.TirednessDecay
	c.SatisfactionDecay = r.SatisfactionDecay
	c.GlobalThreshold = r.GlobalThreshold
	c.TopicThreshold = r.TopicThreshold
	c.StalenessScale = r.StalenessScale
	c.EngagementWeight = r.EngagementWeight
	c.QualityWeight = r.QualityWeight
	return c
}

func lifecycleConfig(r config.ResearchConfig) lifecycle.Config {
	c := lifecycle.DefaultConfig()
	c.Lookback = r.LifecycleLookback
	c.PromotionThreshold = r.LifecyclePromotion
	c.Backoff = r.LifecycleBackoff
	c.BackoffMax = r.LifecycleBackoffMax
	c.Exponential = r.LifecycleExponential
	c.RetirementTTL = r.LifecycleRetirement
	return c
}

func expansionConfig(r config.ResearchConfig) expansion.Config {
	c := expansion.DefaultConfig()
	c.MinSimilarity = r.ExpansionMinSimilarity
	c.GraphLimit = r.ExpansionGraphLimit
	c.ModelTimeout = r.ExpansionModelTimeout
	c.MaxCandidates = r.ExpansionMaxCandidates
	return c
}

func pipelineConfig(r config.ResearchConfig) pipeline.Config {
	c := pipeline.DefaultConfig()
	c.QualityThreshold = r.QualityThreshold
	c.FallbackQualityScore = r.FallbackQualityScore
	c.DedupWindow = r.DedupWindow
	c.SourceTimeout = r.SourceTimeout
	c.SourceResultLimit = r.SourceResultLimit
	c.SourceWorkers = r.SourceWorkers
	c.CompletionTimeout = r.CompletionTimeout
	return c
}

func schedulerConfig(r config.ResearchConfig) scheduler.Config {
	return scheduler.Config{
		Enabled:                r.Enabled,
		EngineType:             r.EngineType,
		Interval:               r.Interval,
		ResearchWorkers:        r.ResearchWorkers,
		ExpansionWorkers:       r.ExpansionWorkers,
		PerRootExpansionBudget: r.PerRootExpansionBudget,
		MaxExpansionDepth:      r.MaxExpansionDepth,
		TopicTimeout:           r.TopicTimeout,
		LeaseTTL:               r.CycleLeaseTTL,
	}
}
