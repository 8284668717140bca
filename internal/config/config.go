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
	Vanna    VannaConfig
	Ai       AIConfig
	Train    TrainConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type VannaConfig struct {
	BaseURL        string
	APIKey         string
	SQLCacheTTLMin int
}

type AIConfig struct {
	LLMProvider   string // "ollama", etc
	LLMModel      string // e.g. "llama3", "qwen2.5"
	OllamaBaseURL string
}

type TrainConfig struct {
	SQLDir      string
	DocumentDir string
	Topic       string
	MaxRounds   int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "5000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Vanna: VannaConfig{
			BaseURL:        getEnv("VANNA_BASE_URL", "http://localhost:8084"),
			APIKey:         getEnv("VANNA_API_KEY", ""),
			SQLCacheTTLMin: getEnvAsInt("VANNA_SQL_CACHE_TTL_MINUTES", 30),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Train: TrainConfig{
			SQLDir:      getEnv("TRAIN_SQL_DIR", "train-sql"),
			DocumentDir: getEnv("TRAIN_DOCUMENT_DIR", "train-document"),
			Topic:       getEnv("TRAIN_FILE_TOPIC_NAME", "TRAIN_FILE"),
			MaxRounds:   getEnvAsInt("SESSION_MAX_ROUNDS", 10),
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
