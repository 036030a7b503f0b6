package store

import (
	"context"
	"fmt"
	"time"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis constructs a redis-backed session store. Expiry is delegated to
// redis key TTLs.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "bot:session:"
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisStore{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}, nil
}

func (s *redisStore) key(chatID string) string {
	return s.prefix + chatID
}

func (s *redisStore) Get(ctx context.Context, chatID string) (session.Session, bool, error) {
	raw, err := s.client.Get(ctx, s.key(chatID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return session.Session{}, false, nil
		}
		return session.Session{}, false, err
	}
	var sess session.Session
	if err := sonic.Unmarshal(raw, &sess); err != nil {
		return session.Session{}, false, err
	}
	return sess, true, nil
}

func (s *redisStore) Put(ctx context.Context, sess session.Session) error {
	if sess.ChatID == "" {
		return fmt.Errorf("chat id required")
	}
	data, err := sonic.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sess.ChatID), data, s.ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, chatID string) error {
	return s.client.Del(ctx, s.key(chatID)).Err()
}

func (s *redisStore) CleanupExpired(context.Context) error {
	// Redis handles expiration via TTL.
	return nil
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	var cursor uint64
	total := 0
	pattern := s.prefix + "*"
	for {
		res, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		total += len(res)
		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}
	return map[string]any{
		"type":        "redis",
		"total":       total,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
