package config

import (
	"time"

	"github.com/rickgao/ratel-client/internal/telemetry"
)

// Config is the root configuration for a client instance.
type Config struct {
	Client     ClientConfig     `yaml:"client" envPrefix:"CLIENT_"`
	Server     ServerConfig     `yaml:"server" envPrefix:"SERVER_"`
	Connection ConnectionConfig `yaml:"connection" envPrefix:"CONNECTION_"`
	Heartbeat  HeartbeatConfig  `yaml:"heartbeat" envPrefix:"HEARTBEAT_"`
	Queue      QueueConfig      `yaml:"queue" envPrefix:"QUEUE_"`
	Snapshot   SnapshotConfig   `yaml:"snapshot" envPrefix:"SNAPSHOT_"`
	Status     StatusConfig     `yaml:"status" envPrefix:"STATUS_"`
	Telemetry  telemetry.Config `yaml:"telemetry" envPrefix:"OTEL_"`
	Log        LogConfig        `yaml:"log" envPrefix:"LOG_"`
}

// ClientConfig identifies the player.
type ClientConfig struct {
	Nickname string `yaml:"nickname" env:"NICKNAME"`
}

// ServerConfig selects the server endpoint.
type ServerConfig struct {
	Address    string `yaml:"address" env:"ADDRESS"` // host:port[:name[vX.Y.Z]]
	WSURL      string `yaml:"ws_url" env:"WS_URL"`   // Overrides the URL built from Address
	Secure     bool   `yaml:"secure" env:"SECURE"`
	Path       string `yaml:"path" env:"PATH"`
	MinVersion string `yaml:"min_version" env:"MIN_VERSION"`

	// LegacyFrames accepts code-less text frames from older servers.
	LegacyFrames *bool `yaml:"legacy_frames" env:"LEGACY_FRAMES"`
}

// ConnectionConfig holds connection manager settings.
type ConnectionConfig struct {
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts" env:"MAX_RECONNECT_ATTEMPTS"`
	ReconnectDelay       time.Duration `yaml:"reconnect_delay" env:"RECONNECT_DELAY"`
	DialTimeout          time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	WriteTimeout         time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	CloseTimeout         time.Duration `yaml:"close_timeout" env:"CLOSE_TIMEOUT"`
	BufferSize           int           `yaml:"buffer_size" env:"BUFFER_SIZE"`
	Greeting             *bool         `yaml:"greeting" env:"GREETING"`
}

// HeartbeatConfig holds liveness probe settings.
type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// QueueConfig holds outbound queue settings.
type QueueConfig struct {
	Capacity int `yaml:"capacity" env:"CAPACITY"`
}

// SnapshotConfig selects where session snapshots persist.
type SnapshotConfig struct {
	Backend   string        `yaml:"backend" env:"BACKEND"` // memory, file, sqlite, redis, postgres
	Key       string        `yaml:"key" env:"KEY"`         // Record name within the backend
	Path      string        `yaml:"path" env:"PATH"`       // File or sqlite database path
	Freshness time.Duration `yaml:"freshness" env:"FRESHNESS"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"` // Bound on a single save or load

	Redis    RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
	Postgres DBConfig    `yaml:"postgres" envPrefix:"POSTGRES_"`
}

// RedisConfig holds a redis connection.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Name     string `yaml:"name" env:"NAME"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxConns int    `yaml:"max_conns" env:"MAX_CONNS"`
	MinConns int    `yaml:"min_conns" env:"MIN_CONNS"`
}

// StatusConfig holds the local status server settings.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr" env:"ADDR"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"` // debug, info, warn, error
}
