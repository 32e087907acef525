package config

import (
	"os"
	"strconv"
)

// Config centralizes runtime settings for the API and workers.
type Config struct {
	Port string

	AuthToken   string
	CORSOrigins string

	DatabaseURL string

	OpenAIAPIKey            string
	OpenAIBaseURL           string
	OpenAITimeoutMS         int
	OpenAIModelAnalysis     string
	OpenAIModelScoring      string
	OpenAIModelPlanning     string
	OpenAIModelOptimization string

	CulturalAPIKey    string
	CulturalBaseURL   string
	CulturalTimeoutMS int

	CacheTTLSeconds int
	CacheMaxEntries int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
	RedisDLQ      string
	RedisGroup    string
	RedisConsumer string

	RateLimitRPS   float64
	RateLimitBurst int

	PipelineTimeoutSeconds int
	StageRetryAttempts     int
	StageRetryDelayMS      int
	RetentionWindowHours   int
	ReaperIntervalSeconds  int
	WorkerConcurrency      int
	QueueCapacity          int

	WorkerEnabled bool
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken:   getEnv("API_AUTH_TOKEN", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:           getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAITimeoutMS:         getEnvInt("OPENAI_TIMEOUT_MS", 45000),
		OpenAIModelAnalysis:     getEnv("OPENAI_MODEL_ANALYSIS", "gpt-4.1-mini"),
		OpenAIModelScoring:      getEnv("OPENAI_MODEL_SCORING", "gpt-4.1-mini"),
		OpenAIModelPlanning:     getEnv("OPENAI_MODEL_PLANNING", "gpt-4.1"),
		OpenAIModelOptimization: getEnv("OPENAI_MODEL_OPTIMIZATION", "gpt-4.1"),

		CulturalAPIKey:    getEnv("CULTURAL_API_KEY", ""),
		CulturalBaseURL:   getEnv("CULTURAL_BASE_URL", "https://hackathon.api.qloo.com"),
		CulturalTimeoutMS: getEnvInt("CULTURAL_TIMEOUT_MS", 30000),

		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 1800),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 2000),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisStream:   getEnv("REDIS_STREAM", "dateplan_jobs"),
		RedisDLQ:      getEnv("REDIS_DLQ_STREAM", "dateplan_jobs_dlq"),
		RedisGroup:    getEnv("REDIS_GROUP", "dateplan_workers"),
		RedisConsumer: getEnv("REDIS_CONSUMER", "api-1"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		PipelineTimeoutSeconds: getEnvInt("PIPELINE_TIMEOUT_SECONDS", 300),
		StageRetryAttempts:     getEnvInt("STAGE_RETRY_ATTEMPTS", 3),
		StageRetryDelayMS:      getEnvInt("STAGE_RETRY_DELAY_MS", 500),
		RetentionWindowHours:   getEnvInt("RETENTION_WINDOW_HOURS", 24),
		ReaperIntervalSeconds:  getEnvInt("REAPER_INTERVAL_SECONDS", 300),
		WorkerConcurrency:      getEnvInt("WORKER_CONCURRENCY", 4),
		QueueCapacity:          getEnvInt("QUEUE_CAPACITY", 256),

		WorkerEnabled: getEnvBool("WORKER_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
