package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey string
	DatabaseURL  string
	HTTPPort     string
	LogLevel     string
	JWTSecret    string

	// ERP host REST API, the read-only data source behind the assistant tools
	ERPBaseURL   string
	ERPAPIKey    string
	ERPAPISecret string

	LLMTimeoutSeconds  int
	ToolTimeoutSeconds int
	HistoryWindow      int
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:        getEnv("DATABASE_URL", "assistant.db"),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		ERPBaseURL:         getEnv("ERP_BASE_URL", ""),
		ERPAPIKey:          getEnv("ERP_API_KEY", ""),
		ERPAPISecret:       getEnv("ERP_API_SECRET", ""),
		LLMTimeoutSeconds:  getEnvAsInt("LLM_TIMEOUT_SECONDS", 30),
		ToolTimeoutSeconds: getEnvAsInt("TOOL_TIMEOUT_SECONDS", 10),
		HistoryWindow:      getEnvAsInt("HISTORY_WINDOW", 20),
	}

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
