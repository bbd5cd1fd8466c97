package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// Snapshot backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Client.Nickname != "" {
		if _, err := NormalizeNickname(c.Client.Nickname); err != nil {
			return fmt.Errorf("client.nickname: %w", err)
		}
	}

	if c.Server.WSURL == "" {
		if _, err := ParseServer(c.Server.Address); err != nil {
			return fmt.Errorf("server.address: %w", err)
		}
	} else if !strings.HasPrefix(c.Server.WSURL, "ws://") && !strings.HasPrefix(c.Server.WSURL, "wss://") {
		return fmt.Errorf("server.ws_url must start with ws:// or wss://, got %q", c.Server.WSURL)
	}
	if _, err := parseVersion(c.Server.MinVersion); err != nil {
		return fmt.Errorf("server.min_version: %w", err)
	}

	if c.Connection.MaxReconnectAttempts < 1 {
		return errors.New("connection.max_reconnect_attempts must be >= 1")
	}
	if c.Connection.ReconnectDelay < 0 {
		return errors.New("connection.reconnect_delay must be >= 0")
	}
	if c.Connection.BufferSize < 1 {
		return errors.New("connection.buffer_size must be >= 1")
	}

	if c.Heartbeat.Interval <= 0 {
		return errors.New("heartbeat.interval must be > 0")
	}
	if c.Heartbeat.Timeout <= 0 {
		return errors.New("heartbeat.timeout must be > 0")
	}
	if c.Heartbeat.Timeout >= c.Heartbeat.Interval {
		return fmt.Errorf("heartbeat.timeout (%s) must be shorter than heartbeat.interval (%s)",
			c.Heartbeat.Timeout, c.Heartbeat.Interval)
	}

	if c.Queue.Capacity < 1 {
		return errors.New("queue.capacity must be >= 1")
	}

	if err := c.Snapshot.validate("snapshot"); err != nil {
		return err
	}

	if c.Status.Enabled {
		if _, _, err := net.SplitHostPort(c.Status.Addr); err != nil {
			return fmt.Errorf("status.addr: %w", err)
		}
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}

func (s *SnapshotConfig) validate(prefix string) error {
	if s.Freshness <= 0 {
		return fmt.Errorf("%s.freshness must be > 0", prefix)
	}
	if s.Key == "" {
		return fmt.Errorf("%s.key is required", prefix)
	}

	switch s.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if s.Path == "" {
			return fmt.Errorf("%s.path is required for backend %s", prefix, s.Backend)
		}
	case BackendRedis:
		if s.Redis.Addr == "" {
			return fmt.Errorf("%s.redis.addr is required", prefix)
		}
	case BackendPostgres:
		return s.Postgres.validate(prefix + ".postgres")
	default:
		return fmt.Errorf("%s.backend must be one of memory, file, sqlite, redis, postgres, got %q", prefix, s.Backend)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return level, nil
}
