package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"
)

type memoryEntry struct {
	sess      session.Session
	expiresAt time.Time
}

type memoryStore struct {
	items       map[string]memoryEntry
	mutex       sync.RWMutex
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-memory session store.
func NewMemory(cfg Config) Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		items:       make(map[string]memoryEntry),
		ttl:         ttl,
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.CleanupExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Get(_ context.Context, chatID string) (session.Session, bool, error) {
	s.mutex.RLock()
	entry, ok := s.items[chatID]
	s.mutex.RUnlock()
	if !ok {
		return session.Session{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.mutex.Lock()
		delete(s.items, chatID)
		s.mutex.Unlock()
		return session.Session{}, false, nil
	}
	return entry.sess, true, nil
}

func (s *memoryStore) Put(_ context.Context, sess session.Session) error {
	if sess.ChatID == "" {
		return fmt.Errorf("chat id required")
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}

	s.mutex.Lock()
	s.items[sess.ChatID] = memoryEntry{
		sess:      sess,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Delete(_ context.Context, chatID string) error {
	s.mutex.Lock()
	delete(s.items, chatID)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) CleanupExpired(_ context.Context) error {
	now := time.Now()
	s.mutex.Lock()
	for id, entry := range s.items {
		if now.After(entry.expiresAt) {
			delete(s.items, id)
		}
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	now := time.Now()
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	total := len(s.items)
	active := 0
	for _, entry := range s.items {
		if now.Before(entry.expiresAt) {
			active++
		}
	}
	return map[string]any{
		"type":        "memory",
		"total":       total,
		"active":      active,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
