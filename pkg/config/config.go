package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	GoogleApiKey   string
	SearchApiKey   string
	SearchEndpoint string
	DatabaseURL    string
	ReasoningModel string
	SynthesisModel string
	EmbeddingModel string
	CollectionName string
	Port           string
	ReportsDir     string
	MaxIterations  int
	SearchCount    int
	SearchPacing   time.Duration
	ChunkSize      int
	ChunkOverlap   int
}

func Load() *Config {
	return &Config{
		GoogleApiKey:   getEnv("GOOGLE_API_KEY", ""),
		SearchApiKey:   getEnv("SEARCH_API_KEY", ""),
		SearchEndpoint: getEnv("SEARCH_ENDPOINT", "https://api.bochaai.com/v1/web-search"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ReasoningModel: getEnv("REASONING_MODEL", "gemini-3-pro-preview"),
		SynthesisModel: getEnv("SYNTHESIS_MODEL", "gemini-3-pro-preview"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		CollectionName: getEnv("COLLECTION_NAME", "evidence_db"),
		Port:           getEnv("PORT", "8000"),
		ReportsDir:     getEnv("REPORTS_DIR", "reports"),
		MaxIterations:  getEnvAsInt("MAX_ITERATIONS", 3),
		SearchCount:    getEnvAsInt("SEARCH_COUNT", 5),
		SearchPacing:   getEnvAsDuration("SEARCH_PACING", 1500*time.Millisecond),
		ChunkSize:      getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvAsInt("CHUNK_OVERLAP", 200),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
