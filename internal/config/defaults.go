package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerAddress        = "localhost:1024"
	DefaultPath                 = "/ws"
	DefaultMaxReconnectAttempts = 3
	DefaultReconnectDelay       = 2 * time.Second
	DefaultDialTimeout          = 10 * time.Second
	DefaultWriteTimeout         = 10 * time.Second
	DefaultCloseTimeout         = 5 * time.Second
	DefaultBufferSize           = 256
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultHeartbeatTimeout     = 10 * time.Second
	DefaultQueueCapacity        = 50
	DefaultSnapshotBackend      = "file"
	DefaultSnapshotKey          = "default"
	DefaultSnapshotPath         = "ratel-session.json"
	DefaultSnapshotFreshness    = 5 * time.Minute
	DefaultSnapshotTimeout      = 3 * time.Second
	DefaultRedisAddr            = "localhost:6379"
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 4
	DefaultMinConns             = 1
	DefaultStatusAddr           = "127.0.0.1:8089"
	DefaultLogLevel             = "info"
	DefaultServiceName          = "ratel-client"
)

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Address == "" && c.Server.WSURL == "" {
		c.Server.Address = DefaultServerAddress
	}
	if c.Server.Path == "" {
		c.Server.Path = DefaultPath
	}
	if c.Server.MinVersion == "" {
		c.Server.MinVersion = DefaultMinServerVersion
	}
	if c.Server.LegacyFrames == nil {
		c.Server.LegacyFrames = boolPtr(true)
	}

	// Connection defaults
	if c.Connection.MaxReconnectAttempts == 0 {
		c.Connection.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Connection.ReconnectDelay == 0 {
		c.Connection.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Connection.DialTimeout == 0 {
		c.Connection.DialTimeout = DefaultDialTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.CloseTimeout == 0 {
		c.Connection.CloseTimeout = DefaultCloseTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}
	if c.Connection.Greeting == nil {
		c.Connection.Greeting = boolPtr(true)
	}

	// Heartbeat defaults
	if c.Heartbeat.Interval == 0 {
		c.Heartbeat.Interval = DefaultHeartbeatInterval
	}
	if c.Heartbeat.Timeout == 0 {
		c.Heartbeat.Timeout = DefaultHeartbeatTimeout
	}

	// Queue defaults
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = DefaultQueueCapacity
	}

	// Snapshot defaults
	if c.Snapshot.Backend == "" {
		c.Snapshot.Backend = DefaultSnapshotBackend
	}
	if c.Snapshot.Key == "" {
		c.Snapshot.Key = DefaultSnapshotKey
	}
	if c.Snapshot.Path == "" {
		c.Snapshot.Path = DefaultSnapshotPath
	}
	if c.Snapshot.Freshness == 0 {
		c.Snapshot.Freshness = DefaultSnapshotFreshness
	}
	if c.Snapshot.Timeout == 0 {
		c.Snapshot.Timeout = DefaultSnapshotTimeout
	}
	if c.Snapshot.Redis.Addr == "" {
		c.Snapshot.Redis.Addr = DefaultRedisAddr
	}
	applyDBDefaults(&c.Snapshot.Postgres)

	// Status defaults
	if c.Status.Addr == "" {
		c.Status.Addr = DefaultStatusAddr
	}

	// Telemetry defaults
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func boolPtr(b bool) *bool {
	return &b
}
