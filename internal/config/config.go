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
	DatabaseURL      string
	Port             string
	Env              string
	AuthKey          string
	HandshakeTimeout time.Duration
	TypingWindow     time.Duration
	HistoryLimit     int
	SendQueueSize    int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[CONFIG] No .env file found, relying on system environment variables")
	}

	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("APP_ENV", "development"),
		AuthKey:          getEnv("AUTH_KEY", ""),
		HandshakeTimeout: getDuration("HANDSHAKE_TIMEOUT", "5s"),
		TypingWindow:     getDuration("TYPING_WINDOW", "2s"),
		HistoryLimit:     getInt("HISTORY_LIMIT", 20),
		SendQueueSize:    getInt("SEND_QUEUE_SIZE", 256),
	}

	log.Printf("[CONFIG] Environment: %s", cfg.Env)
	log.Printf("[CONFIG] Target Port: %s", cfg.Port)

	if cfg.DatabaseURL == "" {
		log.Fatal("[CONFIG] CRITICAL: DATABASE_URL is missing. Server cannot start.")
	}
	log.Printf("[CONFIG] Database URL detected: %s", maskDBSource(cfg.DatabaseURL))

	if cfg.AuthKey == "" {
		log.Fatal("[CONFIG] CRITICAL: AUTH_KEY (JWT secret) is missing. Security cannot be initialized.")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

func getDuration(key, defaultValue string) time.Duration {
	raw := getEnv(key, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("[CONFIG] Invalid duration for %s: %v", key, err)
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("[CONFIG] Invalid integer for %s: %v", key, err)
	}
	return n
}

func maskDBSource(dsn string) string {
	parts := strings.Split(dsn, "@")
	if len(parts) < 2 {
		return "invalid-dsn-format"
	}
	return "postgres://****:****@" + parts[1]
}
