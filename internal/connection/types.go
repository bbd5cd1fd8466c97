package connection

import (
	"errors"
	"time"

	"github.com/rickgao/ratel-client/internal/dispatch"
	"github.com/rickgao/ratel-client/internal/heartbeat"
	"github.com/rickgao/ratel-client/internal/queue"
)

// Errors
var (
	ErrOpenFailed         = errors.New("open failed")
	ErrAbnormalClose      = errors.New("connection closed abnormally")
	ErrNormalClose        = errors.New("connection closed normally")
	ErrHeartbeatTimeout   = errors.New("heartbeat timeout")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrClosed             = errors.New("closed by client")
	ErrEmptyTarget        = errors.New("empty target")
	ErrInvalidState       = errors.New("invalid state")
	ErrNotConnected       = errors.New("not connected")
	ErrAlreadyClosed      = errors.New("already closed")
)

// Close codes sent by the client.
const (
	CloseNormal           = 1000
	CloseHeartbeatTimeout = 4000
)

// TimestampedMessage wraps raw frame data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw frame bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // WebSocket URL (e.g., ws://localhost:1024/ws)
	UserAgent    string        // Sent in the handshake
	DialTimeout  time.Duration // Handshake deadline
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		DialTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		BufferSize:   256,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	MaxReconnectAttempts int              // Attempts after the failure that triggered reconnection
	ReconnectDelay       time.Duration    // Fixed wait before each attempt
	DialTimeout          time.Duration    // Deadline for one dial
	WriteTimeout         time.Duration    // Write deadline for sends
	BufferSize           int              // Inbound frame buffer per transport
	CloseTimeout         time.Duration    // Max wait for the supervisor on Close
	SnapshotTimeout      time.Duration    // Bound on one snapshot save or restore
	QueueCapacity        int              // Outbound operations kept while disconnected
	Heartbeat            heartbeat.Config // Probe schedule
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxReconnectAttempts: 3,
		ReconnectDelay:       2 * time.Second,
		DialTimeout:          10 * time.Second,
		WriteTimeout:         10 * time.Second,
		BufferSize:           256,
		CloseTimeout:         5 * time.Second,
		SnapshotTimeout:      3 * time.Second,
		QueueCapacity:        queue.DefaultCapacity,
		Heartbeat:            heartbeat.DefaultConfig(),
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State      string            `json:"state"`
	Target     string            `json:"target"`
	Attempt    int               `json:"attempt"`
	Opens      int64             `json:"opens"`
	Reconnects int64             `json:"reconnects"`
	Sent       int64             `json:"sent"`
	Deferred   int64             `json:"deferred"`
	Received   int64             `json:"received"`
	Malformed  int64             `json:"malformed"`
	Latency    time.Duration     `json:"latency"`
	Quality    heartbeat.Quality `json:"quality"`
	Heartbeat  heartbeat.Stats   `json:"heartbeat"`
	Queue      queue.Stats       `json:"queue"`
	Dispatch   dispatch.Stats    `json:"dispatch"`
	LastError  string            `json:"last_error,omitempty"`
}
