package redisstore

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/tokens"
)

// Store keeps the pair in Redis so several processes can share one session.
type Store struct {
	client *goredis.Client
	prefix string
}

var _ tokens.Store = (*Store)(nil)

func New(client *goredis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Open creates a client and checks connectivity with PING.
func Open(ctx context.Context, addr, password string, db int, prefix string) (*Store, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return New(client, prefix), nil
}

func (s *Store) Access(ctx context.Context) (string, error) {
	return s.get(ctx, tokens.AccessKey)
}

func (s *Store) Refresh(ctx context.Context) (string, error) {
	return s.get(ctx, tokens.RefreshKey)
}

func (s *Store) Set(ctx context.Context, pair tokens.Pair) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(tokens.AccessKey), pair.Access, 0)
	pipe.Set(ctx, s.key(tokens.RefreshKey), pair.Refresh, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return sessionerrors.Wrapf(err, "store token pair")
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := s.client.Del(ctx, s.key(tokens.AccessKey), s.key(tokens.RefreshKey)).Err(); err != nil {
		return sessionerrors.Wrapf(err, "clear token pair")
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) get(ctx context.Context, name string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("redis client is nil")
	}

	value, err := s.client.Get(ctx, s.key(name)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", sessionerrors.Wrapf(err, "get %s token", name)
	}
	return value, nil
}

func (s *Store) key(name string) string {
	return s.prefix + name
}
