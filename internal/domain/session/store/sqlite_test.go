package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&SessionRecord{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func TestSQLiteStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLiteDB(t)

	store, err := NewSQLite(db, Config{TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewSQLite error: %v", err)
	}

	sess := *session.New("sqlite-chat", session.ModeRegistration)
	sess.Fields.Discipline = "Линал"
	sess.Fields.LectureDate = "01.09.2025"
	sess.Fields.LectureTime = "10:15"

	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, ok, err := store.Get(ctx, sess.ChatID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok {
		t.Fatalf("expected session present")
	}
	if got.Fields.Discipline != "Линал" || got.Fields.LectureTime != "10:15" {
		t.Fatalf("unexpected fields: %+v", got.Fields)
	}

	sess.Advance(session.StateWaitingSource)
	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, _, _ = store.Get(ctx, sess.ChatID)
	if got.State != session.StateWaitingSource {
		t.Fatalf("expected overwritten state, got %s", got.State)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats["total"].(int64) != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	if err := store.Delete(ctx, sess.ChatID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, ok, _ := store.Get(ctx, sess.ChatID); ok {
		t.Fatalf("expected missing after delete")
	}
}

func TestSQLiteStoreCleanup(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLiteDB(t)

	store, err := NewSQLite(db, Config{TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewSQLite error: %v", err)
	}

	record := &SessionRecord{
		ChatID:    "expired-sqlite",
		Mode:      string(session.ModeRegistration),
		State:     string(session.StateWaitingTeacher),
		Fields:    []byte(`{}`),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("seed record: %v", err)
	}

	if err := store.CleanupExpired(ctx); err != nil {
		t.Fatalf("CleanupExpired error: %v", err)
	}

	if _, ok, _ := store.Get(ctx, record.ChatID); ok {
		t.Fatalf("expected expired session to be gone")
	}
}
