// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath      string
	OpenAIAPIKey      string
	LogLevel          string
	APIAddr           string
	APIKeys           map[string][]string
	TelegramBotToken  string
	TelegramChatID    int64
	SchedulerInterval time.Duration
	RSSInterval       time.Duration
	BatchWorkers      int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	cfg := &Config{
		DatabasePath: envOrDefault("DATABASE_PATH", "./data/engine.db"),
		OpenAIAPIKey: apiKey,
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		APIAddr:      envOrDefault("API_ADDR", ":8080"),
	}

	keys, err := parseAPIKeys(os.Getenv("API_KEYS"))
	if err != nil {
		return nil, err
	}
	cfg.APIKeys = keys

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
		cfg.TelegramChatID = id
	}

	cfg.SchedulerInterval, err = durationOrDefault("SCHEDULER_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.RSSInterval, err = durationOrDefault("RSS_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.BatchWorkers = 4
	if raw := os.Getenv("BATCH_WORKERS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid BATCH_WORKERS %q", raw)
		}
		cfg.BatchWorkers = n
	}

	return cfg, nil
}

// parseAPIKeys parses the API_KEYS format:
// "key1=posts_read+pillars_read,key2=pillars_manage".
func parseAPIKeys(raw string) (map[string][]string, error) {
	keys := make(map[string][]string)
	if raw == "" {
		return keys, nil
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, scopes, ok := strings.Cut(entry, "=")
		if !ok || key == "" || scopes == "" {
			return nil, fmt.Errorf("invalid API_KEYS entry %q", entry)
		}
		keys[key] = strings.Split(scopes, "+")
	}
	return keys, nil
}

func durationOrDefault(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return d, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
