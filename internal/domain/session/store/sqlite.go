package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SessionRecord is the GORM model backing the sqlite driver.
type SessionRecord struct {
	ID        uint           `gorm:"primaryKey"`
	ChatID    string         `gorm:"type:varchar(64);uniqueIndex;not null"`
	Mode      string         `gorm:"not null"`
	State     string         `gorm:"not null"`
	Fields    datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

type sqliteStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// OpenSQLite opens the database handle and migrates the session table.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "./data/sessions.db"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&SessionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// NewSQLite builds a SQLite-backed session store.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &sqliteStore{
		db:  db,
		ttl: ttl,
	}, nil
}

func (s *sqliteStore) Get(ctx context.Context, chatID string) (session.Session, bool, error) {
	var record SessionRecord
	err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session.Session{}, false, nil
	}
	if err != nil {
		return session.Session{}, false, err
	}
	if time.Now().After(record.ExpiresAt) {
		_ = s.Delete(ctx, chatID)
		return session.Session{}, false, nil
	}

	sess := session.Session{
		ChatID:    record.ChatID,
		Mode:      session.Mode(record.Mode),
		State:     session.State(record.State),
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
	if len(record.Fields) > 0 {
		if err := sonic.Unmarshal(record.Fields, &sess.Fields); err != nil {
			return session.Session{}, false, err
		}
	}
	return sess, true, nil
}

func (s *sqliteStore) Put(ctx context.Context, sess session.Session) error {
	if sess.ChatID == "" {
		return fmt.Errorf("chat id required")
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	fields, err := sonic.Marshal(sess.Fields)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", sess.ChatID).Delete(&SessionRecord{}).Error; err != nil {
			return err
		}
		record := &SessionRecord{
			ChatID:    sess.ChatID,
			Mode:      string(sess.Mode),
			State:     string(sess.State),
			Fields:    fields,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
			ExpiresAt: time.Now().Add(s.ttl),
		}
		return tx.Create(record).Error
	})
}

func (s *sqliteStore) Delete(ctx context.Context, chatID string) error {
	return s.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&SessionRecord{}).Error
}

func (s *sqliteStore) CleanupExpired(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&SessionRecord{}).
		Error
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&SessionRecord{}).Count(&total).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":        "sqlite",
		"total":       total,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}
