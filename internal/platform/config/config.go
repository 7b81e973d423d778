package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. A missing .env is reported as an error that callers
// may ignore and fall back to the process environment or defaults. With no
// paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvDuration parses values such as "15s" or "250ms". Invalid or
// non-positive values yield fallback.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// GetEnvBool accepts the forms understood by strconv.ParseBool.
func GetEnvBool(key string, fallback bool) bool {
	if s := os.Getenv(key); s != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b
		}
	}
	return fallback
}

// ServerConfig holds settings for cmd/server.
type ServerConfig struct {
	Port            string
	LogLevel        string
	LogFormat       string
	StreamTTL       time.Duration
	ReapEvery       time.Duration
	ChatStoreDriver string
	ChatStoreDSN    string
	ChatHistory     int

	// ChatRate is the sustained chat lines per second allowed on one
	// connection; ChatBurst is the bucket size.
	ChatRate  int
	ChatBurst int
}

// LoadServer reads ServerConfig from the environment, applying defaults.
func LoadServer() ServerConfig {
	return ServerConfig{
		Port:            GetEnv("PORT", "8080"),
		LogLevel:        GetEnv("LOG_LEVEL", "info"),
		LogFormat:       GetEnv("LOG_FORMAT", "json"),
		StreamTTL:       GetEnvDuration("STREAM_TTL", 60*time.Second),
		ReapEvery:       GetEnvDuration("STREAM_REAP_EVERY", 10*time.Second),
		ChatStoreDriver: GetEnv("CHAT_STORE_DRIVER", "memory"),
		ChatStoreDSN:    GetEnv("CHAT_STORE_DSN", ""),
		ChatHistory:     GetEnvInt("CHAT_HISTORY_LIMIT", 50),
		ChatRate:        GetEnvInt("CHAT_RATE_PER_SEC", 5),
		ChatBurst:       GetEnvInt("CHAT_BURST", 10),
	}
}

// ClientConfig holds settings for cmd/streamer.
type ClientConfig struct {
	LogLevel  string
	LogFormat string

	// LogFile receives logs while the terminal UI owns stdout.
	LogFile string

	// PageURL is the origin the client behaves as if it was loaded from.
	// Its scheme decides between ws and wss for the real-time endpoint.
	PageURL      string
	APIBaseURL   string
	RealtimePath string

	UserID    string
	Username  string
	AvatarURL string
	StreamID  string
	Currency  string

	Heartbeat   bool
	ChatHistory int
}

// LoadClient reads ClientConfig from the environment, applying defaults.
func LoadClient() ClientConfig {
	page := GetEnv("PAGE_URL", "http://localhost:8080")
	return ClientConfig{
		LogLevel:     GetEnv("LOG_LEVEL", "info"),
		LogFormat:    GetEnv("LOG_FORMAT", "text"),
		LogFile:      GetEnv("LOG_FILE", "streamer.log"),
		PageURL:      page,
		APIBaseURL:   GetEnv("API_BASE_URL", page),
		RealtimePath: GetEnv("REALTIME_PATH", "/ws"),
		UserID:       GetEnv("USER_ID", ""),
		Username:     GetEnv("USERNAME", ""),
		AvatarURL:    GetEnv("AVATAR_URL", ""),
		StreamID:     GetEnv("STREAM_ID", ""),
		Currency:     GetEnv("CURRENCY", "KRW"),
		Heartbeat:    GetEnvBool("HEARTBEAT_ENABLED", true),
		ChatHistory:  GetEnvInt("CHAT_HISTORY_LIMIT", 50),
	}
}
