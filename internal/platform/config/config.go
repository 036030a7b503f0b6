package config

import (
	"time"

	platformerrors "github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
	"github.com/alonePlayerr1/MAI-Bot/internal/platform/logging"
)

// RedisStore holds connection options for the redis session driver.
type RedisStore struct {
	Addr     string `yaml:"addr" json:"addr"`
	Username string `yaml:"username,omitempty" json:"username"`
	Password string `yaml:"password,omitempty" json:"password"`
	DB       int    `yaml:"db,omitempty" json:"db"`
	Prefix   string `yaml:"prefix,omitempty" json:"prefix"`
}

// SQLiteStore provides the database DSN for the sqlite session driver.
type SQLiteStore struct {
	DSN string `yaml:"dsn,omitempty" json:"dsn"`
}

// MemoryStore holds tuning knobs for the in-memory session driver.
type MemoryStore struct {
	Cleanup string `yaml:"cleanup,omitempty" json:"cleanup"`
}

// Config is the root configuration for the bot process.
type Config struct {
	Telegram struct {
		Token       string `yaml:"token" json:"token"`
		APIBase     string `yaml:"api_base" json:"api_base"`
		WebhookIP   string `yaml:"webhook_ip" json:"webhook_ip"`
		WebhookPort int    `yaml:"webhook_port" json:"webhook_port"`
		WebhookPath string `yaml:"webhook_path" json:"webhook_path"`
	} `yaml:"telegram" json:"telegram"`

	Session struct {
		Store struct {
			Type    string      `yaml:"type" json:"type"`       // memory/sqlite/redis
			Expiry  int         `yaml:"expiry" json:"expiry"`   // hours
			Cleanup string      `yaml:"cleanup,omitempty" json:"cleanup"`
			Redis   RedisStore  `yaml:"redis,omitempty" json:"redis"`
			Sqlite  SQLiteStore `yaml:"sqlite,omitempty" json:"sqlite"`
			Memory  MemoryStore `yaml:"memory,omitempty" json:"memory"`
		} `yaml:"store" json:"store"`
	} `yaml:"session" json:"session"`

	Pipeline struct {
		ScratchDir         string `yaml:"scratch_dir" json:"scratch_dir"`
		Workers            int    `yaml:"workers" json:"workers"`
		TranscribeTimeout  string `yaml:"transcribe_timeout" json:"transcribe_timeout"`
		MaxTranscriptChars int    `yaml:"max_transcript_chars" json:"max_transcript_chars"`
	} `yaml:"pipeline" json:"pipeline"`

	Storage struct {
		Bucket string `yaml:"bucket" json:"bucket"`
		Root   string `yaml:"root" json:"root"`
	} `yaml:"storage" json:"storage"`

	STT struct {
		Provider string `yaml:"provider" json:"provider"`
		APIKey   string `yaml:"api_key" json:"api_key"`
		BaseURL  string `yaml:"base_url,omitempty" json:"base_url"`
		Model    string `yaml:"model" json:"model"`
		Language string `yaml:"language" json:"language"`
	} `yaml:"stt" json:"stt"`

	LLM struct {
		APIKey      string  `yaml:"api_key" json:"api_key"`
		BaseURL     string  `yaml:"base_url,omitempty" json:"base_url"`
		Model       string  `yaml:"model" json:"model"`
		MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
		Temperature float32 `yaml:"temperature" json:"temperature"`
	} `yaml:"llm" json:"llm"`

	Log logging.Config `yaml:"log" json:"log"`
}

// Default returns a configuration preloaded with working defaults. Secrets
// stay empty and must come from the config file or the environment.
func Default() *Config {
	cfg := &Config{}

	cfg.Telegram.APIBase = "https://api.telegram.org"
	cfg.Telegram.WebhookIP = "0.0.0.0"
	cfg.Telegram.WebhookPort = 8080
	cfg.Telegram.WebhookPath = "/telegram/webhook"

	cfg.Session.Store.Type = "memory"
	cfg.Session.Store.Expiry = 24
	cfg.Session.Store.Cleanup = "5m"

	cfg.Pipeline.ScratchDir = "temp"
	cfg.Pipeline.Workers = 4
	cfg.Pipeline.TranscribeTimeout = "90m"
	cfg.Pipeline.MaxTranscriptChars = 80000

	cfg.Storage.Bucket = "mai-lectures"
	cfg.Storage.Root = "bucket"

	cfg.STT.Provider = "whisper"
	cfg.STT.Model = "whisper-1"
	cfg.STT.Language = "ru"

	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.MaxTokens = 1024
	cfg.LLM.Temperature = 0.3

	cfg.Log.Level = "info"
	cfg.Log.Dir = "logs"
	cfg.Log.Filename = "bot.log"

	return cfg
}

// SessionTTL converts the configured expiry hours into a duration.
func (c *Config) SessionTTL() time.Duration {
	if c.Session.Store.Expiry <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Session.Store.Expiry) * time.Hour
}

// TranscribeTimeout parses the configured transcription timeout.
func (c *Config) TranscribeTimeout() time.Duration {
	d, err := time.ParseDuration(c.Pipeline.TranscribeTimeout)
	if err != nil || d <= 0 {
		return 90 * time.Minute
	}
	return d
}

// Validate checks invariants that would otherwise surface deep inside a run.
func (c *Config) Validate() error {
	const op = "validate"

	switch c.Session.Store.Type {
	case "memory", "sqlite", "redis":
	default:
		return platformerrors.New(platformerrors.KindConfig, op,
			"session.store.type must be one of memory/sqlite/redis")
	}
	if c.Session.Store.Type == "redis" && c.Session.Store.Redis.Addr == "" {
		return platformerrors.New(platformerrors.KindConfig, op,
			"session.store.redis.addr is required for the redis driver")
	}
	if c.Session.Store.Type == "sqlite" && c.Session.Store.Sqlite.DSN == "" {
		return platformerrors.New(platformerrors.KindConfig, op,
			"session.store.sqlite.dsn is required for the sqlite driver")
	}
	if c.Storage.Bucket == "" {
		return platformerrors.New(platformerrors.KindConfig, op,
			"storage.bucket must not be empty")
	}
	if c.Pipeline.Workers <= 0 {
		return platformerrors.New(platformerrors.KindConfig, op,
			"pipeline.workers must be positive")
	}
	return nil
}
