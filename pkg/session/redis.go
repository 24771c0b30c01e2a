package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session state in Redis under a per-terminal key prefix,
// so kiosk terminals that share a counter machine survive reboots and can be
// inspected centrally.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a store for the given terminal ID. A zero ttl means
// keys never expire.
func NewRedisStore(rdb *redis.Client, terminalID string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		prefix: "sofra:session:" + terminalID + ":",
		ttl:    ttl,
	}
}

// Dial connects to Redis and verifies the connection with a ping.
func Dial(addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) LoadPrincipal() ([]byte, bool) {
	raw, err := s.rdb.Get(context.Background(), s.prefix+KeyPrincipal).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

func (s *RedisStore) SavePrincipal(raw []byte) error {
	return s.set(KeyPrincipal, string(raw))
}

func (s *RedisStore) Clear() error {
	ctx := context.Background()
	return s.rdb.Del(ctx, s.prefix+KeyPrincipal, s.prefix+KeyToken).Err()
}

func (s *RedisStore) Token() (string, bool) {
	val, err := s.rdb.Get(context.Background(), s.prefix+KeyToken).Result()
	if err != nil || val == "" {
		return "", false
	}
	return val, true
}

func (s *RedisStore) SetToken(token string) error {
	return s.set(KeyToken, token)
}

func (s *RedisStore) Muted() bool {
	val, err := s.rdb.Get(context.Background(), s.prefix+KeyMuted).Result()
	return err == nil && val == "true"
}

func (s *RedisStore) SetMuted(muted bool) error {
	val := "false"
	if muted {
		val = "true"
	}
	// The mute flag never expires: it is a user preference, not a credential.
	return s.rdb.Set(context.Background(), s.prefix+KeyMuted, val, 0).Err()
}

func (s *RedisStore) set(key, val string) error {
	return s.rdb.Set(context.Background(), s.prefix+key, val, s.ttl).Err()
}
