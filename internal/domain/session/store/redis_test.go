package store

import (
	"context"
	"testing"
	"time"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedis(Config{
		TTL: time.Second,
		Redis: &RedisConfig{
			Addr: mr.Addr(),
		},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	sess := *session.New("redis-chat", session.ModeRegistration)
	sess.Fields.Discipline = "Физика"
	sess.Fields.Teacher = "Иванов"

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
	if got.Fields.Teacher != "Иванов" || got.Mode != session.ModeRegistration {
		t.Fatalf("unexpected session: %+v", got)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats["total"].(int) != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	if err := store.Delete(ctx, sess.ChatID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, ok, _ := store.Get(ctx, sess.ChatID); ok {
		t.Fatalf("expected missing session after delete")
	}
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedis(Config{
		TTL: 100 * time.Millisecond,
		Redis: &RedisConfig{
			Addr: mr.Addr(),
		},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	sess := *session.New("redis-ttl", session.ModeDevTesting)
	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	mr.FastForward(time.Second)

	if _, ok, _ := store.Get(ctx, sess.ChatID); ok {
		t.Fatalf("expected session to expire via redis TTL")
	}
}
