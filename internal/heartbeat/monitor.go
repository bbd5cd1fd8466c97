package heartbeat

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Defaults for the probe schedule.
const (
	DefaultInterval = 30 * time.Second
	DefaultTimeout  = 10 * time.Second
)

// Config holds heartbeat settings.
type Config struct {
	Interval time.Duration `yaml:"interval"` // Time between probes
	Timeout  time.Duration `yaml:"timeout"`  // Max wait for an ack
}

// DefaultConfig returns the reference probe schedule.
func DefaultConfig() Config {
	return Config{
		Interval: DefaultInterval,
		Timeout:  DefaultTimeout,
	}
}

// Prober sends one probe carrying sentAt (unix milliseconds). An error means
// the probe did not reach the wire and no timeout is armed.
type Prober func(ctx context.Context, sentAt int64) error

// Monitor sends periodic probes and reports when one goes unanswered.
type Monitor struct {
	cfg       Config
	probe     Prober
	onTimeout func()
	logger    *slog.Logger
	now       func() time.Time

	// cbMu is held while onTimeout runs so Stop can wait it out.
	cbMu sync.Mutex

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	done    chan struct{}
	pending int64 // sentAt of the armed probe, 0 if none
	timer   *time.Timer

	latency    time.Duration
	hasSample  bool
	probesSent int64
	acks       int64
	timeouts   int64
}

// New creates a stopped monitor. onTimeout is called once per unanswered
// probe; it must not call Stop.
func New(cfg Config, probe Prober, onTimeout func(), logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if onTimeout == nil {
		onTimeout = func() {}
	}
	return &Monitor{
		cfg:       cfg,
		probe:     probe,
		onTimeout: onTimeout,
		logger:    logger,
		now:       time.Now,
	}
}

// Start begins probing. A running monitor is restarted.
func (m *Monitor) Start(ctx context.Context) {
	m.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.loop(loopCtx, m.gen, m.done)
}

// Stop clears the ticker and any armed timeout. It is safe to call more than
// once. No timeout callback runs after Stop returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.gen++
	m.disarmLocked()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	// Wait out a callback that passed its generation check before we bumped it.
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
}

// Ack records the answer to the armed probe. It returns false when sentAt
// does not match an outstanding probe.
func (m *Monitor) Ack(sentAt int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == 0 || m.pending != sentAt {
		return false
	}
	m.disarmLocked()

	rtt := m.now().Sub(time.UnixMilli(sentAt))
	if rtt < 0 {
		rtt = 0
	}
	m.latency = rtt
	m.hasSample = true
	m.acks++
	return true
}

// Latency returns the last measured round trip and whether one exists.
func (m *Monitor) Latency() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latency, m.hasSample
}

// Quality classifies the last round trip.
func (m *Monitor) Quality() Quality {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasSample {
		return QualityUnknown
	}
	return Classify(m.latency)
}

// Stats returns monitor statistics.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := QualityUnknown
	if m.hasSample {
		q = Classify(m.latency)
	}
	return Stats{
		ProbesSent:  m.probesSent,
		Acks:        m.acks,
		Timeouts:    m.timeouts,
		Outstanding: m.pending != 0,
		Latency:     m.latency,
		Quality:     q,
	}
}

// Stats contains heartbeat statistics.
type Stats struct {
	ProbesSent  int64         `json:"probes_sent"`
	Acks        int64         `json:"acks"`
	Timeouts    int64         `json:"timeouts"`
	Outstanding bool          `json:"outstanding"`
	Latency     time.Duration `json:"latency"`
	Quality     Quality       `json:"quality"`
}

func (m *Monitor) loop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx, gen)
		}
	}
}

func (m *Monitor) tick(ctx context.Context, gen uint64) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	if m.pending != 0 {
		// Previous probe still armed; its timeout decides.
		m.mu.Unlock()
		return
	}
	sentAt := m.now().UnixMilli()
	m.pending = sentAt
	m.timer = time.AfterFunc(m.cfg.Timeout, func() { m.expire(gen, sentAt) })
	m.probesSent++
	m.mu.Unlock()

	if err := m.probe(ctx, sentAt); err != nil {
		m.mu.Lock()
		if m.gen == gen && m.pending == sentAt {
			m.disarmLocked()
			m.probesSent--
		}
		m.mu.Unlock()
		m.logger.Debug("heartbeat probe not sent", "error", err)
	}
}

func (m *Monitor) expire(gen uint64, sentAt int64) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()

	m.mu.Lock()
	if m.gen != gen || m.pending != sentAt {
		m.mu.Unlock()
		return
	}
	m.pending = 0
	m.timer = nil
	m.timeouts++
	m.mu.Unlock()

	m.logger.Warn("heartbeat timed out",
		"sent_at", sentAt,
		"timeout", m.cfg.Timeout,
	)
	m.onTimeout()
}

// disarmLocked must be called with mu held.
func (m *Monitor) disarmLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.pending = 0
}
