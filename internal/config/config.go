package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Agent    AgentConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
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
	EmbeddingProvider    string // "gemini" or "ollama"
	OllamaBaseURL        string
	OllamaEmbeddingModel string
	LLMProvider          string // "ollama", "gemini", "huggingface"
	LLMModel             string // e.g. "llama3.2", "gemini-2.0-flash"
	LLMBaseURL           string
	GeminiAPIKey         string
	HuggingFaceAPIKey    string
	JinaAPIKey           string
	EmbeddingCacheTTLMin int
}

// AgentConfig tunes the research workflow.
type AgentConfig struct {
	MaxIterations      int
	RelevanceThreshold float64
	RetrievalTopK      int
	ChunkSize          int
	ChunkOverlap       int
	IngestTopic        string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:    getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaEmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:          getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:             getEnv("LLM_MODEL", "llama3.2"),
			LLMBaseURL:           getEnv("LLM_BASE_URL", ""),
			GeminiAPIKey:         getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFaceAPIKey:    getEnv("HUGGINGFACE_API_KEY", ""),
			JinaAPIKey:           getEnv("JINA_API_KEY", ""),
			EmbeddingCacheTTLMin: getEnvAsInt("EMBEDDING_CACHE_TTL_MINUTES", 60),
		},
		Agent: AgentConfig{
			MaxIterations:      getEnvAsInt("MAX_ITERATIONS", 3),
			RelevanceThreshold: getEnvAsFloat("RELEVANCE_THRESHOLD", 7.0),
			RetrievalTopK:      getEnvAsInt("RETRIEVAL_TOP_K", 5),
			ChunkSize:          getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap:       getEnvAsInt("CHUNK_OVERLAP", 200),
			IngestTopic:        getEnv("INGEST_DOCUMENT_TOPIC_NAME", "INGEST_DOCUMENT"),
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
