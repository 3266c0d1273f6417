package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Research ResearchConfig
	Sources  SourcesConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LogLevel           string
	ResearchLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	TriggerTopic       string // watermill topic for manual research triggers
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	HuggingFace  string
	PubMed       string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "huggingface"
	LLMModel          string
	LLMBaseURL        string
}

// ResearchConfig groups every tunable of the autonomous research engine.
type ResearchConfig struct {
	Enabled    bool
	EngineType string
	Interval   time.Duration

	// Concurrency & budgets
	ResearchWorkers        int
	ExpansionWorkers       int
	PerRootExpansionBudget int
	MaxExpansionDepth      int
	MaxActiveTopics        int
	CycleLeaseTTL          time.Duration
	TopicTimeout           time.Duration
	EngagementCacheTTL     time.Duration

	// Pipeline
	QualityThreshold     float64
	FallbackQualityScore float64
	DedupWindow          int
	SourceTimeout        time.Duration
	SourceResultLimit    int
	SourceWorkers        int
	CompletionTimeout    time.Duration

	// Expansion
	ExpansionMinSimilarity float64
	ExpansionGraphLimit    int
	ExpansionModelTimeout  time.Duration
	ExpansionMaxCandidates int

	// Lifecycle
	LifecycleLookback    time.Duration
	LifecyclePromotion   float64
	LifecycleBackoff     time.Duration
	LifecycleBackoffMax  time.Duration
	LifecycleExponential bool
	LifecycleRetirement  time.Duration

	// Drives
	BoredomRate       float64
	CuriosityDecay    float64
	TirednessDecay    float64
	SatisfactionDecay float64
	GlobalThreshold   float64
	TopicThreshold    float64
	StalenessScale    float64
	EngagementWeight  float64
	QualityWeight     float64
}

type SourcesConfig struct {
	SearxngURL    string
	ArxivURL      string
	HackerNewsURL string
	PubMedURL     string
	Enabled       []string
	RatePerSecond float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			ResearchLogPath:    getEnv("RESEARCH_LOG_PATH", "logs/research.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			TriggerTopic:       getEnv("RESEARCH_TRIGGER_TOPIC", "RESEARCH_TRIGGER"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
			PubMed:       getEnv("PUBMED_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
		},
		Research: ResearchConfig{
			Enabled:    getEnvAsBool("RESEARCH_ENABLED", true),
			EngineType: getEnv("RESEARCH_ENGINE_TYPE", "pipeline"),
			Interval:   getEnvAsDuration("RESEARCH_INTERVAL", 15*time.Minute),

			ResearchWorkers:        getEnvAsInt("RESEARCH_WORKERS", 3),
			ExpansionWorkers:       getEnvAsInt("RESEARCH_EXPANSION_WORKERS", 2),
			PerRootExpansionBudget: getEnvAsInt("RESEARCH_EXPANSION_BUDGET", 2),
			MaxExpansionDepth:      getEnvAsInt("RESEARCH_MAX_EXPANSION_DEPTH", 2),
			MaxActiveTopics:        getEnvAsInt("RESEARCH_MAX_ACTIVE_TOPICS", 25),
			CycleLeaseTTL:          getEnvAsDuration("RESEARCH_CYCLE_LEASE_TTL", 10*time.Minute),
			TopicTimeout:           getEnvAsDuration("RESEARCH_TOPIC_TIMEOUT", 10*time.Minute),
			EngagementCacheTTL:     getEnvAsDuration("RESEARCH_ENGAGEMENT_CACHE_TTL", time.Minute),

			QualityThreshold:     getEnvAsFloat("RESEARCH_QUALITY_THRESHOLD", 0.6),
			FallbackQualityScore: getEnvAsFloat("RESEARCH_FALLBACK_QUALITY", 0.5),
			DedupWindow:          getEnvAsInt("RESEARCH_DEDUP_WINDOW", 3),
			SourceTimeout:        getEnvAsDuration("RESEARCH_SOURCE_TIMEOUT", 30*time.Second),
			SourceResultLimit:    getEnvAsInt("RESEARCH_SOURCE_LIMIT", 8),
			SourceWorkers:        getEnvAsInt("RESEARCH_SOURCE_WORKERS", 4),
			CompletionTimeout:    getEnvAsDuration("RESEARCH_COMPLETION_TIMEOUT", 90*time.Second),

			ExpansionMinSimilarity: getEnvAsFloat("RESEARCH_EXPANSION_MIN_SIMILARITY", 0.35),
			ExpansionGraphLimit:    getEnvAsInt("RESEARCH_EXPANSION_GRAPH_LIMIT", 8),
			ExpansionModelTimeout:  getEnvAsDuration("RESEARCH_EXPANSION_MODEL_TIMEOUT", 20*time.Second),
			ExpansionMaxCandidates: getEnvAsInt("RESEARCH_EXPANSION_MAX_CANDIDATES", 10),

			LifecycleLookback:    getEnvAsDuration("RESEARCH_LIFECYCLE_LOOKBACK", 14*24*time.Hour),
			LifecyclePromotion:   getEnvAsFloat("RESEARCH_LIFECYCLE_PROMOTION", 0.3),
			LifecycleBackoff:     getEnvAsDuration("RESEARCH_LIFECYCLE_BACKOFF", 24*time.Hour),
			LifecycleBackoffMax:  getEnvAsDuration("RESEARCH_LIFECYCLE_BACKOFF_MAX", 14*24*time.Hour),
			LifecycleExponential: getEnvAsBool("RESEARCH_LIFECYCLE_EXPONENTIAL", true),
			LifecycleRetirement:  getEnvAsDuration("RESEARCH_LIFECYCLE_RETIREMENT", 30*24*time.Hour),

			BoredomRate:       getEnvAsFloat("DRIVE_BOREDOM_RATE", 0.0005),
			CuriosityDecay:    getEnvAsFloat("DRIVE_CURIOSITY_DECAY", 0.0002),
			TirednessDecay:    getEnvAsFloat("DRIVE_TIREDNESS_DECAY", 0.0003),
			SatisfactionDecay: getEnvAsFloat("DRIVE_SATISFACTION_DECAY", 0.0002),
			GlobalThreshold:   getEnvAsFloat("DRIVE_GLOBAL_THRESHOLD", 0.5),
			TopicThreshold:    getEnvAsFloat("DRIVE_TOPIC_THRESHOLD", 0.6),
			StalenessScale:    getEnvAsFloat("DRIVE_STALENESS_SCALE", 1.0/7200.0),
			EngagementWeight:  getEnvAsFloat("DRIVE_ENGAGEMENT_WEIGHT", 0.4),
			QualityWeight:     getEnvAsFloat("DRIVE_QUALITY_WEIGHT", 0.3),
		},
		Sources: SourcesConfig{
			SearxngURL:    getEnv("SEARXNG_URL", ""),
			ArxivURL:      getEnv("ARXIV_URL", "https://export.arxiv.org/api/query"),
			HackerNewsURL: getEnv("HACKERNEWS_URL", "https://hn.algolia.com/api/v1/search"),
			PubMedURL:     getEnv("PUBMED_URL", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"),
			Enabled:       getEnvAsList("RESEARCH_SOURCES", []string{"web", "academic", "social", "medical"}),
			RatePerSecond: getEnvAsFloat("RESEARCH_SOURCE_RATE", 1),
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
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

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
