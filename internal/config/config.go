package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends for live game state.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type AppConfig struct {
	ListenAddr string `env:"MADN_LISTEN_ADDR" envDefault:":8080"`

	StoreBackend string `env:"MADN_STORE" envDefault:"memory"`
	RedisURL     string `env:"REDIS_URL"`

	// Result archive; empty DatabaseURL disables archiving.
	DatabaseDriver string `env:"MADN_DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	EnsureSchema   bool   `env:"MADN_ENSURE_SCHEMA" envDefault:"false"`

	GameTTL          time.Duration `env:"MADN_GAME_TTL" envDefault:"24h"`
	EventRetention   int           `env:"MADN_EVENT_RETENTION" envDefault:"200"`
	ChatRetention    int           `env:"MADN_CHAT_RETENTION" envDefault:"100"`
	TeamSize         int           `env:"MADN_TEAM_SIZE" envDefault:"4"`
	AutoCreateOnJoin bool          `env:"MADN_AUTO_CREATE_ON_JOIN" envDefault:"false"`
	MaxChatLength    int           `env:"MADN_MAX_CHAT_LENGTH" envDefault:"500"`

	RequestTimeout    time.Duration `env:"MADN_REQUEST_TIMEOUT" envDefault:"5s"`
	FirstPollWindow   time.Duration `env:"MADN_FIRST_POLL_WINDOW" envDefault:"5m"`
	FirstPollMessages int           `env:"MADN_FIRST_POLL_MESSAGES" envDefault:"10"`
	PollHintActive    time.Duration `env:"MADN_POLL_HINT_ACTIVE" envDefault:"1s"`
	PollHintIdle      time.Duration `env:"MADN_POLL_HINT_IDLE" envDefault:"3s"`
	PollHintFinished  time.Duration `env:"MADN_POLL_HINT_FINISHED" envDefault:"10s"`

	MessagesDir string `env:"MADN_MESSAGES_DIR"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)

	switch cfg.StoreBackend {
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for MADN_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("unsupported MADN_STORE: %s", cfg.StoreBackend)
	}
	if cfg.DatabaseURL != "" && cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return nil, fmt.Errorf("unsupported MADN_DATABASE_DRIVER: %s", cfg.DatabaseDriver)
	}
	if cfg.TeamSize <= 0 {
		return nil, errors.New("MADN_TEAM_SIZE must be positive")
	}
	if cfg.EventRetention <= 0 || cfg.ChatRetention <= 0 {
		return nil, errors.New("retention caps must be positive")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	return cfg, nil
}
