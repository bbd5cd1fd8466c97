package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rickgao/ratel-client/internal/session"
)

// DefaultPrefix namespaces snapshot keys.
const DefaultPrefix = "ratel:session:"

// Config holds redis connection settings.
type Config struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// Connect creates a client and verifies the server answers.
func Connect(ctx context.Context, cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Store is a Redis-backed snapshot slot. Entries expire after ttl, so a
// stale snapshot disappears on its own.
type Store struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
}

// NewStore creates a store writing to prefix+name.
func NewStore(client *goredis.Client, name string, ttl time.Duration) *Store {
	return &Store{
		client: client,
		key:    DefaultPrefix + name,
		ttl:    ttl,
	}
}

// Key returns the redis key used.
func (s *Store) Key() string {
	return s.key
}

// Save implements session.Durable.
func (s *Store) Save(ctx context.Context, rec session.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

// Load implements session.Durable.
func (s *Store) Load(ctx context.Context) (*session.Record, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil // not found
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}

	var rec session.Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
