package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	apperrors "riskmap/pkg/errors"
)

// Config holds all configuration for the pipeline
type Config struct {
	// Server
	Port           string `validate:"required"`
	Environment    string
	AllowedOrigins string

	// Database
	DatabaseURL string `validate:"required"`

	// Redis
	RedisURL string `validate:"required"`

	// Control endpoint auth
	JWTSecret          string `validate:"required,min=16"`
	JWTExpirationHours int

	// Language
	CanonicalLanguage string `validate:"required,len=2"`

	// Fetcher Pool
	FetcherWorkers     int     `validate:"min=1,max=64"`
	FetcherQPSPerHost  float64 `validate:"gt=0"`
	FetcherTimeout     time.Duration
	FetcherRetries     int
	MaxEntriesPerFeed  int

	// Deduplication
	TitleSimilarityThreshold float64 `validate:"min=0,max=1"`
	DedupTimeWindow          time.Duration

	// Enricher Pool
	EnricherWorkers     int `validate:"min=1,max=32"`
	EnricherBatchSize   int
	EnricherTimeout     time.Duration
	EnrichmentRetries   int
	EnrichmentCooldown  time.Duration
	TranslationBodyCap  int

	// Translation Gateway
	TranslationProviderChain []string
	TranslationCacheTTL      time.Duration
	LibreTranslateURL        string
	LibreTranslateAPIKey     string

	// LLM providers (OpenAI-compatible; the primary is typically a
	// Groq-hosted endpoint, the secondary the OpenAI API itself)
	PrimaryLLMBaseURL   string
	PrimaryLLMAPIKey    string
	PrimaryLLMModel     string
	SecondaryLLMBaseURL string
	SecondaryLLMAPIKey  string
	SecondaryLLMModel   string

	// Circuit breakers
	BreakerFailureThreshold int
	BreakerCooldown         time.Duration

	// Geocoding
	GeocoderBaseURL  string
	GeocoderCacheTTL time.Duration

	// External feeds
	EventsAPIURL     string
	EventsAPIKey     string
	EventsWindowDays int
	ToneBaseURL      string
	RiskIndexURL     string

	// Consolidator
	ConsolidationLookbackDays int
	ProximityRadiusDegrees    float64
	NewsRiskThreshold         float64
	NewsSentimentThreshold    float64
	AIAmplificationEnabled    bool
	PredictionsEnabled        bool
	MaxPredictions            int

	// Schedules (cron specs, robfig/cron standard format)
	FetchSchedule       string
	EnrichSchedule      string
	EventsSchedule      string
	ToneSchedule        string
	RiskIndexSchedule   string
	ConsolidateSchedule string

	// Rate limiting for the query API
	APIRateLimit  int
	APIRateWindow time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg := &Config{
		// Server
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost/riskmap?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Control endpoint auth
		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production-please"),
		JWTExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),

		// Language
		CanonicalLanguage: getEnv("CANONICAL_LANGUAGE", "en"),

		// Fetcher Pool
		FetcherWorkers:    getEnvAsInt("FETCHER_WORKERS", 8),
		FetcherQPSPerHost: getEnvAsFloat("FETCHER_QPS_PER_HOST", 1.0),
		FetcherTimeout:    getEnvAsDuration("FETCHER_TIMEOUT", 30*time.Second),
		FetcherRetries:    getEnvAsInt("FETCHER_RETRIES", 3),
		MaxEntriesPerFeed: getEnvAsInt("MAX_ENTRIES_PER_FEED", 50),

		// Deduplication
		TitleSimilarityThreshold: getEnvAsFloat("TITLE_SIMILARITY_THRESHOLD", 0.85),
		DedupTimeWindow:          getEnvAsDuration("DEDUP_TIME_WINDOW", 48*time.Hour),

		// Enricher Pool
		EnricherWorkers:    getEnvAsInt("ENRICHER_WORKERS", 4),
		EnricherBatchSize:  getEnvAsInt("ENRICHER_BATCH_SIZE", 20),
		EnricherTimeout:    getEnvAsDuration("ENRICHER_TIMEOUT", 60*time.Second),
		EnrichmentRetries:  getEnvAsInt("ENRICHMENT_RETRIES", 3),
		EnrichmentCooldown: getEnvAsDuration("ENRICHMENT_COOLDOWN", 15*time.Minute),
		TranslationBodyCap: getEnvAsInt("TRANSLATION_BODY_CAP", 3000),

		// Translation Gateway
		TranslationProviderChain: parseList(getEnv("TRANSLATION_PROVIDER_CHAIN", "libretranslate,primary-llm,secondary-llm")),
		TranslationCacheTTL:      getEnvAsDuration("TRANSLATION_CACHE_TTL", 72*time.Hour),
		LibreTranslateURL:        getEnv("LIBRETRANSLATE_URL", "http://localhost:5000"),
		LibreTranslateAPIKey:     getEnv("LIBRETRANSLATE_API_KEY", ""),

		// LLM providers
		PrimaryLLMBaseURL:   getEnv("PRIMARY_LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		PrimaryLLMAPIKey:    getEnv("PRIMARY_LLM_API_KEY", getEnv("GROQ_API_KEY", "")),
		PrimaryLLMModel:     getEnv("PRIMARY_LLM_MODEL", "llama-3.1-8b-instant"),
		SecondaryLLMBaseURL: getEnv("SECONDARY_LLM_BASE_URL", ""),
		SecondaryLLMAPIKey:  getEnv("SECONDARY_LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
		SecondaryLLMModel:   getEnv("SECONDARY_LLM_MODEL", "gpt-4o-mini"),

		// Circuit breakers
		BreakerFailureThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerCooldown:         getEnvAsDuration("BREAKER_COOLDOWN", 2*time.Minute),

		// Geocoding
		GeocoderBaseURL:  getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderCacheTTL: getEnvAsDuration("GEOCODER_CACHE_TTL", 30*24*time.Hour),

		// External feeds
		EventsAPIURL:     getEnv("EVENTS_API_URL", "https://api.acleddata.com/acled/read"),
		EventsAPIKey:     getEnv("EVENTS_API_KEY", ""),
		EventsWindowDays: getEnvAsInt("EVENTS_WINDOW_DAYS", 7),
		ToneBaseURL:      getEnv("TONE_BASE_URL", "http://data.gdeltproject.org/events"),
		RiskIndexURL:     getEnv("RISK_INDEX_URL", "https://www.matteoiacoviello.com/gpr_files/GPR_Data.csv"),

		// Consolidator
		ConsolidationLookbackDays: getEnvAsInt("CONSOLIDATION_LOOKBACK_DAYS", 7),
		ProximityRadiusDegrees:    getEnvAsFloat("PROXIMITY_RADIUS_DEGREES", 0.5),
		NewsRiskThreshold:         getEnvAsFloat("NEWS_RISK_THRESHOLD", 0.5),
		NewsSentimentThreshold:    getEnvAsFloat("NEWS_SENTIMENT_THRESHOLD", -0.3),
		AIAmplificationEnabled:    getEnvAsBool("AI_AMPLIFICATION_ENABLED", true),
		PredictionsEnabled:        getEnvAsBool("PREDICTIONS_ENABLED", true),
		MaxPredictions:            getEnvAsInt("MAX_PREDICTIONS", 5),

		// Schedules
		FetchSchedule:       getEnv("FETCH_SCHEDULE", "*/15 * * * *"),
		EnrichSchedule:      getEnv("ENRICH_SCHEDULE", "*/5 * * * *"),
		EventsSchedule:      getEnv("EVENTS_SCHEDULE", "0 2 * * *"),
		ToneSchedule:        getEnv("TONE_SCHEDULE", "0 3 * * *"),
		RiskIndexSchedule:   getEnv("RISK_INDEX_SCHEDULE", "0 4 1 * *"),
		ConsolidateSchedule: getEnv("CONSOLIDATE_SCHEDULE", "*/30 * * * *"),

		// Rate limiting
		APIRateLimit:  getEnvAsInt("API_RATE_LIMIT", 300),
		APIRateWindow: getEnvAsDuration("API_RATE_WINDOW", time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.EventsAPIKey == "" {
		log.Printf("Warning: EVENTS_API_KEY not set - events integrator will be skipped")
	}
	if cfg.PrimaryLLMAPIKey == "" && cfg.SecondaryLLMAPIKey == "" {
		log.Printf("Warning: no LLM API key set - entity extraction falls back to keyword heuristics and zone AI amplification is disabled")
	}

	return cfg, nil
}

// Validate checks structural constraints on the loaded configuration
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return apperrors.NewConfigError(verrs[0].Field(), verrs[0].Tag())
		}
		return apperrors.NewConfigError("", err.Error())
	}
	if len(c.TranslationProviderChain) == 0 {
		return apperrors.NewConfigError("TranslationProviderChain", "at least one provider required")
	}
	return nil
}

// IsProduction reports whether the deployment runs in production mode
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// IsDevelopment reports whether the deployment runs in development mode
func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.Environment) == "development"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
