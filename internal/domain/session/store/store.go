package store

import (
	"context"
	"time"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"
)

// Store defines the behaviour required by the dialog service. A missing
// session means the chat is idle.
type Store interface {
	Get(ctx context.Context, chatID string) (session.Session, bool, error)
	Put(ctx context.Context, sess session.Session) error
	Delete(ctx context.Context, chatID string) error
	CleanupExpired(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver string
	TTL    time.Duration
	Redis  *RedisConfig
	SQLite *SQLiteConfig
	Memory *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// SQLiteConfig provides the database dependency.
type SQLiteConfig struct {
	DSN string
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
