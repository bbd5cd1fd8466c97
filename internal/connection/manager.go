package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rickgao/ratel-client/internal/dispatch"
	"github.com/rickgao/ratel-client/internal/heartbeat"
	"github.com/rickgao/ratel-client/internal/protocol"
	"github.com/rickgao/ratel-client/internal/queue"
	"github.com/rickgao/ratel-client/internal/session"
	"github.com/rickgao/ratel-client/internal/telemetry"
)

// Manager keeps one logical session alive across transport drops.
type Manager interface {
	// Connect dials target and blocks until the first open, a terminal
	// failure, Close, or ctx is done. ctx bounds only the wait.
	Connect(ctx context.Context, target string) error

	// Send transmits msg when open and queues it otherwise. A write cut
	// short by ctx reports DeliveryFailed with the error.
	Send(ctx context.Context, msg protocol.Message) (protocol.Delivery, error)

	// Close stops the connection. Queued operations are kept.
	Close() error

	// State returns the current lifecycle state.
	State() State

	// Stats returns current connection statistics.
	Stats() ManagerStats

	// Session returns a copy of the live session.
	Session() session.Session

	// Rename sets the local nickname and announces it to the server. The
	// change is snapshotted first so a restore on the next open keeps it.
	Rename(ctx context.Context, nickname string) (protocol.Delivery, error)

	// AddListener registers a state change observer.
	AddListener(l Listener)

	// Err returns the error that ended the last connection, if any.
	Err() error
}

// Option customizes a Manager.
type Option func(*manager)

// WithCodec replaces the default JSON codec.
func WithCodec(c protocol.Codec) Option {
	return func(m *manager) { m.codec = c }
}

// WithSink sets the presentation sink handed to handlers.
func WithSink(s dispatch.Sink) Option {
	return func(m *manager) { m.sink = s }
}

// WithGreeting sends a message built from the session on every open, ahead
// of queued operations. Returning false skips it.
func WithGreeting(fn func(session.Session) (protocol.Message, bool)) Option {
	return func(m *manager) { m.greeting = fn }
}

// WithClientFactory replaces the gorilla transport.
func WithClientFactory(f ClientFactory) Option {
	return func(m *manager) { m.newClient = f }
}

// manager implements the Manager interface.
type manager struct {
	cfg       ManagerConfig
	registry  *dispatch.Registry
	store     *session.Store
	logger    *slog.Logger
	tracer    trace.Tracer
	codec     protocol.Codec
	sink      dispatch.Sink
	greeting  func(session.Session) (protocol.Message, bool)
	newClient ClientFactory

	queue     *queue.Queue
	hb        *heartbeat.Monitor
	hbTimeout chan struct{}

	mu       sync.Mutex
	gen      uint64 // Bumped by Connect and Close; stale supervisors stop mutating
	state    State
	attempt  int
	target   string
	client   Client // Open transport, nil otherwise
	flushing bool
	lastErr  error
	cancel   context.CancelFunc
	done     chan struct{}

	// Serializes local session edits against snapshot and restore.
	sessionMu sync.Mutex

	listenerMu sync.Mutex
	listeners  []Listener

	// Stats
	opens      atomic.Int64
	reconnects atomic.Int64
	sent       atomic.Int64
	deferred   atomic.Int64
	received   atomic.Int64
	malformed  atomic.Int64
}

// NewManager creates a disconnected Connection Manager.
func NewManager(cfg ManagerConfig, registry *dispatch.Registry, store *session.Store, logger *slog.Logger, opts ...Option) Manager {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultManagerConfig()
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = defaults.CloseTimeout
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = defaults.SnapshotTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = defaults.QueueCapacity
	}
	if store == nil {
		store = session.NewStore(nil, 0, logger)
	}

	m := &manager{
		cfg:       cfg,
		registry:  registry,
		store:     store,
		logger:    logger.With("component", "connection"),
		tracer:    telemetry.Tracer(),
		codec:     protocol.JSONCodec{},
		sink:      dispatch.Discard,
		newClient: NewClient,
		hbTimeout: make(chan struct{}, 1),
		state:     StateDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.queue = queue.New(cfg.QueueCapacity, m.logger)
	m.hb = heartbeat.New(cfg.Heartbeat, m.probe, m.onHeartbeatTimeout, m.logger)
	return m
}

// Connect implements Manager.
func (m *manager) Connect(ctx context.Context, target string) error {
	if target == "" {
		return ErrEmptyTarget
	}

	m.mu.Lock()
	if m.state != StateDisconnected && m.state != StateFailed {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: connect while %s", ErrInvalidState, state)
	}

	// The lifecycle is owned by Close, not by the caller's ctx.
	lifeCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.gen++
	gen := m.gen
	m.cancel = cancel
	m.done = make(chan struct{})
	m.target = target
	m.attempt = 0
	m.lastErr = nil
	done := m.done
	ev := m.setStateLocked(StateConnecting, nil)
	m.mu.Unlock()
	m.emit(ev)

	m.logger.Info("connecting", "target", target)

	result := make(chan error, 1)
	go m.supervise(lifeCtx, gen, target, result, done)

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send implements Manager and dispatch.Client.
func (m *manager) Send(ctx context.Context, msg protocol.Message) (protocol.Delivery, error) {
	m.mu.Lock()
	if m.state == StateOpen && !m.flushing && m.client != nil {
		client := m.client
		m.mu.Unlock()

		err := m.transmit(ctx, client, msg)
		if err == nil {
			return protocol.DeliverySent, nil
		}
		if ctx.Err() != nil {
			return protocol.DeliveryFailed, err
		}
		// The transport died under us; keep the message for the next open.
		m.logger.Debug("send raced a drop, deferring", "code", msg.Code, "error", err)
		m.mu.Lock()
	}

	m.queue.Enqueue(func(ctx context.Context) error {
		return m.transmitCurrent(ctx, msg)
	})
	m.mu.Unlock()

	m.deferred.Add(1)
	return protocol.DeliveryDeferred, nil
}

// Close implements Manager.
func (m *manager) Close() error {
	m.mu.Lock()
	if m.state == StateDisconnected || m.state == StateFailed {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	cancel, done, client := m.cancel, m.done, m.client
	m.client = nil
	m.flushing = false
	ev := m.setStateLocked(StateClosing, nil)
	m.mu.Unlock()
	m.emit(ev)

	// Heartbeat first so no timeout fires against a closing transport.
	m.hb.Stop()
	if cancel != nil {
		cancel()
	}

	var closeErr error
	if client != nil {
		closeErr = client.Close(CloseNormal, "client closing")
	}

	if done != nil {
		select {
		case <-done:
		case <-time.After(m.cfg.CloseTimeout):
			m.logger.Warn("close timeout, supervisor still running")
		}
	}

	m.mu.Lock()
	m.lastErr = nil
	ev = m.setStateLocked(StateDisconnected, nil)
	m.mu.Unlock()
	m.emit(ev)

	m.logger.Info("connection closed", "queued", m.queue.Len())
	return closeErr
}

// State implements Manager.
func (m *manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err implements Manager.
func (m *manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Session implements Manager and dispatch.Client.
func (m *manager) Session() session.Session {
	return m.store.Get()
}

// UpdateSession implements dispatch.Client. Only handlers call it, from the
// serve loop.
func (m *manager) UpdateSession(fn func(*session.Session)) {
	m.store.Update(fn)
}

// Rename implements Manager.
func (m *manager) Rename(ctx context.Context, nickname string) (protocol.Delivery, error) {
	msg, err := protocol.NewMessage(protocol.CodeSetNickname, nickname)
	if err != nil {
		return protocol.DeliveryFailed, err
	}

	m.sessionMu.Lock()
	m.store.Update(func(s *session.Session) { s.User.Nickname = nickname })
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.SnapshotTimeout)
	_, err = m.store.Snapshot(sctx)
	cancel()
	m.sessionMu.Unlock()
	if err != nil {
		m.logger.Warn("session snapshot failed", "error", err)
	}

	return m.Send(ctx, msg)
}

// AckHeartbeat implements dispatch.Client.
func (m *manager) AckHeartbeat(sentAt int64) bool {
	return m.hb.Ack(sentAt)
}

// AddListener implements Manager.
func (m *manager) AddListener(l Listener) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Stats implements Manager.
func (m *manager) Stats() ManagerStats {
	m.mu.Lock()
	state, attempt, target, lastErr := m.state, m.attempt, m.target, m.lastErr
	m.mu.Unlock()

	hb := m.hb.Stats()
	stats := ManagerStats{
		State:      state.String(),
		Target:     target,
		Attempt:    attempt,
		Opens:      m.opens.Load(),
		Reconnects: m.reconnects.Load(),
		Sent:       m.sent.Load(),
		Deferred:   m.deferred.Load(),
		Received:   m.received.Load(),
		Malformed:  m.malformed.Load(),
		Latency:    hb.Latency,
		Quality:    hb.Quality,
		Heartbeat:  hb,
		Queue:      m.queue.Stats(),
	}
	if m.registry != nil {
		stats.Dispatch = m.registry.Stats()
	}
	if lastErr != nil {
		stats.LastError = lastErr.Error()
	}
	return stats
}

// supervise owns one Connect lifecycle: first dial, serving, reconnects.
func (m *manager) supervise(ctx context.Context, gen uint64, target string, result chan<- error, done chan struct{}) {
	defer close(done)

	resolved := false
	resolve := func(err error) {
		if !resolved {
			resolved = true
			result <- err
		}
	}

	client, err := m.open(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			resolve(ErrClosed)
			return
		}
		m.logger.Warn("initial connect failed", "target", target, "error", err)
		client, err = m.reconnect(ctx, gen, target, err)
		if err != nil {
			m.terminate(ctx, gen, err, resolve)
			return
		}
	}

	for {
		if !m.activate(ctx, gen, client) {
			client.Close(CloseNormal, "client closing")
			resolve(ErrClosed)
			return
		}
		resolve(nil)

		cause := m.serve(ctx, client)
		m.deactivate(ctx, gen, client)

		if ctx.Err() != nil {
			return
		}

		if errors.Is(cause, ErrNormalClose) {
			m.logger.Info("server closed connection", "reason", cause)
			m.mu.Lock()
			var ev *StateEvent
			if m.gen == gen {
				m.lastErr = cause
				ev = m.setStateLocked(StateDisconnected, cause)
			}
			m.mu.Unlock()
			m.emit(ev)
			resolve(cause)
			return
		}

		m.logger.Warn("connection lost", "error", cause)
		client, err = m.reconnect(ctx, gen, target, cause)
		if err != nil {
			m.terminate(ctx, gen, err, resolve)
			return
		}
	}
}

// terminate reports a failed lifecycle once.
func (m *manager) terminate(ctx context.Context, gen uint64, err error, resolve func(error)) {
	if ctx.Err() != nil {
		resolve(ErrClosed)
		return
	}

	m.mu.Lock()
	var ev *StateEvent
	if m.gen == gen {
		m.lastErr = err
		ev = m.setStateLocked(StateFailed, err)
	}
	m.mu.Unlock()
	m.emit(ev)

	m.logger.Error("connection failed", "error", err, "queued", m.queue.Len())
	resolve(err)
}

// open dials one transport.
func (m *manager) open(ctx context.Context, target string) (Client, error) {
	ctx, span := m.tracer.Start(ctx, "connection.open",
		trace.WithAttributes(attribute.String("ratel.target", target)),
	)
	defer span.End()

	client := m.newClient(ClientConfig{
		URL:          target,
		DialTimeout:  m.cfg.DialTimeout,
		WriteTimeout: m.cfg.WriteTimeout,
		BufferSize:   m.cfg.BufferSize,
	}, m.logger)

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()

	if err := client.Connect(dialCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	return client, nil
}

// reconnect waits the fixed delay, then makes up to MaxReconnectAttempts
// dials spaced by the same delay.
func (m *manager) reconnect(ctx context.Context, gen uint64, target string, cause error) (Client, error) {
	limit := m.cfg.MaxReconnectAttempts
	if limit <= 0 {
		return nil, fmt.Errorf("%w: reconnect disabled: %w", ErrReconnectExhausted, cause)
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	ev := m.setStateLocked(StateReconnecting, cause)
	m.mu.Unlock()
	m.emit(ev)

	timer := time.NewTimer(m.cfg.ReconnectDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil, ctx.Err()
	case <-timer.C:
	}

	var client Client
	err := retry.Do(
		func() error {
			m.mu.Lock()
			if m.gen != gen {
				m.mu.Unlock()
				return retry.Unrecoverable(ErrClosed)
			}
			m.attempt++
			attempt := m.attempt
			ev := m.eventLocked(StateReconnecting, StateReconnecting, nil)
			m.mu.Unlock()
			m.emit(ev)
			m.reconnects.Add(1)

			m.logger.Info("reconnecting", "attempt", attempt, "max", limit, "target", target)

			c, err := m.open(ctx, target)
			if err != nil {
				return err
			}
			client = c
			return nil
		},
		retry.Attempts(uint(limit)),
		retry.Delay(m.cfg.ReconnectDelay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			m.logger.Warn("reconnect attempt failed", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrClosed) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrReconnectExhausted, limit, err)
	}
	return client, nil
}

// activate brings a freshly dialed transport into service. It returns false
// if the lifecycle was closed meanwhile.
func (m *manager) activate(ctx context.Context, gen uint64, client Client) bool {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return false
	}
	m.attempt = 0
	m.mu.Unlock()

	m.sessionMu.Lock()
	rctx, cancel := context.WithTimeout(ctx, m.cfg.SnapshotTimeout)
	restored, err := m.store.Restore(rctx)
	cancel()
	m.sessionMu.Unlock()
	if err != nil {
		m.logger.Warn("session restore failed", "error", err)
	} else if restored {
		m.logger.Info("session restored", "client_id", m.store.Get().ClientID)
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return false
	}
	m.client = client
	m.flushing = true
	m.lastErr = nil
	target := m.target
	ev := m.setStateLocked(StateOpen, nil)
	m.mu.Unlock()
	m.emit(ev)
	m.opens.Add(1)

	// Drop a timeout signal left over from the previous transport.
	select {
	case <-m.hbTimeout:
	default:
	}
	m.hb.Start(ctx)

	if m.greeting != nil {
		if msg, ok := m.greeting(m.store.Get()); ok {
			if err := m.transmit(ctx, client, msg); err != nil {
				m.logger.Warn("greeting failed", "error", err)
			}
		}
	}

	if !m.flush(ctx, gen) {
		return false
	}

	m.logger.Info("connection open", "target", target)
	return true
}

// flush replays the queue. Sends made meanwhile are queued behind it and
// picked up by the next pass, so FIFO order holds. If the lifecycle ends
// mid-pass the unsent tail goes back to the head of the queue and flush
// returns false.
func (m *manager) flush(ctx context.Context, gen uint64) bool {
	for {
		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			return false
		}
		ops := m.queue.Drain()
		if len(ops) == 0 {
			m.flushing = false
			m.mu.Unlock()
			return true
		}
		m.mu.Unlock()

		m.logger.Debug("flushing queued operations", "count", len(ops))
		for i := range ops {
			failed := m.queue.Execute(ctx, ops[i:i+1])
			if m.current(gen) {
				continue
			}
			rest := ops[i+1:]
			if failed > 0 {
				rest = ops[i:]
			}
			m.queue.Requeue(rest)
			m.logger.Info("flush interrupted, operations kept", "requeued", len(rest))
			return false
		}
	}
}

// current reports whether gen is still the live lifecycle.
func (m *manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

// serve runs the message loop until the transport ends or ctx is done.
func (m *manager) serve(ctx context.Context, client Client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-m.hbTimeout:
			client.Close(CloseHeartbeatTimeout, "heartbeat timeout")
			return ErrHeartbeatTimeout

		case tm := <-client.Messages():
			m.handleFrame(ctx, tm)

		case err := <-client.Errors():
			// Frames read before the failure still belong to this session.
			for {
				select {
				case tm := <-client.Messages():
					m.handleFrame(ctx, tm)
					continue
				default:
				}
				break
			}
			return classifyClose(err)
		}
	}
}

// deactivate tears down after serve returns.
func (m *manager) deactivate(ctx context.Context, gen uint64, client Client) {
	m.hb.Stop()

	m.mu.Lock()
	if m.gen == gen {
		m.client = nil
		m.flushing = false
	}
	m.mu.Unlock()

	client.Close(CloseNormal, "")

	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.SnapshotTimeout)
	defer cancel()
	if _, err := m.store.Snapshot(sctx); err != nil {
		m.logger.Warn("session snapshot failed", "error", err)
	}
}

func (m *manager) handleFrame(ctx context.Context, tm TimestampedMessage) {
	m.received.Add(1)

	msg, err := m.codec.Decode(tm.Data)
	if err != nil {
		m.malformed.Add(1)
		m.logger.Warn("dropping malformed frame", "error", err, "size", len(tm.Data))
		return
	}
	if m.registry == nil {
		return
	}
	m.registry.Dispatch(ctx, m, m.sink, msg)
}

func (m *manager) transmit(ctx context.Context, client Client, msg protocol.Message) error {
	data, err := m.codec.Encode(ctx, msg)
	if err != nil {
		return err
	}
	if err := client.Send(ctx, data); err != nil {
		return fmt.Errorf("send code %d: %w", msg.Code, err)
	}
	m.sent.Add(1)
	return nil
}

// transmitCurrent sends on whatever transport is open. Queued operations
// use it so they never re-enter the queue.
func (m *manager) transmitCurrent(ctx context.Context, msg protocol.Message) error {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	if client == nil {
		return ErrNotConnected
	}
	return m.transmit(ctx, client, msg)
}

func (m *manager) probe(ctx context.Context, sentAt int64) error {
	m.mu.Lock()
	client, state := m.client, m.state
	m.mu.Unlock()

	if state != StateOpen || client == nil || !client.IsConnected() {
		return ErrNotConnected
	}

	msg, err := protocol.NewMessage(protocol.CodeHeartbeatProbe, protocol.Probe{SentAt: sentAt})
	if err != nil {
		return err
	}
	return m.transmit(ctx, client, msg)
}

func (m *manager) onHeartbeatTimeout() {
	select {
	case m.hbTimeout <- struct{}{}:
	default:
	}
}

// setStateLocked must be called with mu held. The returned event is passed
// to emit after unlocking.
func (m *manager) setStateLocked(s State, err error) *StateEvent {
	old := m.state
	m.state = s
	return m.eventLocked(old, s, err)
}

func (m *manager) eventLocked(old, s State, err error) *StateEvent {
	return &StateEvent{
		Old:     old,
		New:     s,
		Attempt: m.attempt,
		Err:     err,
		At:      time.Now(),
	}
}

func (m *manager) emit(ev *StateEvent) {
	if ev == nil {
		return
	}
	m.logger.Debug("state change", "old", ev.Old, "new", ev.New, "attempt", ev.Attempt)

	m.listenerMu.Lock()
	listeners := append([]Listener(nil), m.listeners...)
	m.listenerMu.Unlock()

	for _, l := range listeners {
		l(*ev)
	}
}

// classifyClose maps a read loop error to the manager's taxonomy.
func classifyClose(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return fmt.Errorf("%w: %w", ErrNormalClose, err)
	}
	return fmt.Errorf("%w: %w", ErrAbnormalClose, err)
}
