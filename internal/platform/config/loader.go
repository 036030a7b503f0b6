package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
)

const defaultPath = "config.yaml"

// Loader reads configuration from a yaml file with env overrides on top.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader reading CONFIG_PATH (or config.yaml).
func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the config file path (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the effective configuration: defaults, then the yaml file if
// present, then environment overrides for secrets.
func (l *Loader) Load() (*Result, error) {
	const op = "load"

	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, relying on the process environment")
		}
	}

	path := l.path
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = defaultPath
	}

	cfg := Default()

	if raw, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, op,
				"parse config file", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, platformerrors.Wrap(platformerrors.KindConfig, op,
			"read config file", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: path}, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if cfg.STT.APIKey == "" {
			cfg.STT.APIKey = v
		}
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = v
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Session.Store.Redis.Addr = v
	}
}
