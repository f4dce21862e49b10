package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr    string
	DBPath        string
	PhotoPath     string
	LogLevel      string
	LogFormat     string
	LogFile       string
	ChatBackend   string
	GroqAPIKey    string
	GroqModel     string
	GroqBaseURL   string
	WhisperModel  string
	VisionBackend string
	GeminiAPIKey  string
	GeminiModel   string
	ClaudeAPIKey  string
	ClaudeModel   string
	OllamaHost    string
	OllamaModel   string
	PromptsFile   string
	ChatRetention time.Duration
	PruneSchedule string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; variables already set win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		DBPath:        getEnv("DB_PATH", "/data/farmguide.db"),
		PhotoPath:     getEnv("PHOTO_LOCAL_PATH", "/data/photos"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		LogFile:       getEnv("LOG_FILE", ""),
		ChatBackend:   getEnv("CHAT_BACKEND", "groq"),
		GroqAPIKey:    getEnv("GROQ_API_KEY", ""),
		GroqModel:     getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL:   getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		WhisperModel:  getEnv("WHISPER_MODEL", "whisper-large-v3"),
		VisionBackend: getEnv("VISION_BACKEND", "gemini"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash-lite"),
		ClaudeAPIKey:  getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:   getEnv("CLAUDE_MODEL", "claude-sonnet-4-5"),
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llava"),
		PromptsFile:   getEnv("PROMPTS_FILE", ""),
		ChatRetention: getDuration("CHAT_RETENTION", 7*24*time.Hour),
		PruneSchedule: getEnv("PRUNE_SCHEDULE", "@hourly"),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
