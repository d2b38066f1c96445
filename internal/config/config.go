package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the runtime settings of the service.
type Config struct {
	Port            string
	GinMode         string
	LogLevel        string
	ProxyDelay      time.Duration
	EventBufferSize int
}

// Load reads configuration from the environment, with a .env file as
// fallback for local runs. Missing values fall back to defaults.
func Load() Config {
	// Absent .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return Config{
		Port:            port(),
		GinMode:         getEnv("GIN_MODE", "release"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ProxyDelay:      getDuration("PROXY_DELAY_MS", 50*time.Millisecond),
		EventBufferSize: getInt("EVENT_BUFFER_SIZE", 256),
	}
}

func port() string {
	if p := os.Getenv("PORT"); p != "" {
		return fmt.Sprintf(":%s", p)
	}
	return ":8080"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}
