package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultFreshness is how long a snapshot stays usable for restore.
const DefaultFreshness = 5 * time.Minute

// Durable persists a single named record across process restarts.
type Durable interface {
	// Save overwrites the stored record.
	Save(ctx context.Context, rec Record) error

	// Load returns the stored record, or nil if none exists.
	Load(ctx context.Context) (*Record, error)
}

// Store owns the live session and its snapshots.
type Store struct {
	logger    *slog.Logger
	durable   Durable
	freshness time.Duration
	now       func() time.Time

	mu   sync.Mutex
	live Session
	mem  *Record // In-process slot
}

// NewStore creates a store around a fresh session. durable may be nil, in
// which case only the in-process slot is used.
func NewStore(durable Durable, freshness time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Store{
		logger:    logger,
		durable:   durable,
		freshness: freshness,
		now:       time.Now,
		live:      New(),
	}
}

// Get returns a copy of the live session.
func (s *Store) Get() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live.Clone()
}

// Update applies fn to the live session under the store lock.
func (s *Store) Update(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.live)
}

// Freshness returns the restore window.
func (s *Store) Freshness() time.Duration {
	return s.freshness
}

// Snapshot copies the live session into the in-process and durable slots.
// The in-process slot is always written; a durable failure is returned.
func (s *Store) Snapshot(ctx context.Context) (Record, error) {
	s.mu.Lock()
	rec := NewRecord(s.live, s.now())
	mem := rec.clone()
	s.mem = &mem
	s.mu.Unlock()

	if s.durable == nil {
		return rec, nil
	}
	if err := s.durable.Save(ctx, rec); err != nil {
		return rec, fmt.Errorf("save durable snapshot: %w", err)
	}

	s.logger.Debug("session snapshot saved",
		"client_id", rec.ClientID,
		"nickname", rec.User.Nickname,
	)
	return rec, nil
}

// Restore overwrites the live session from the newest usable snapshot.
// It returns false with a nil error when no fresh snapshot exists.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	now := s.now()

	s.mu.Lock()
	if s.mem != nil {
		if s.mem.Fresh(now, s.freshness) {
			s.mem.applyTo(&s.live)
			s.mu.Unlock()
			s.logger.Debug("session restored", "source", "memory")
			return true, nil
		}
		s.logger.Debug("discarding stale in-process snapshot",
			"age", now.Sub(s.mem.Timestamp),
		)
		s.mem = nil
	}
	s.mu.Unlock()

	if s.durable == nil {
		return false, nil
	}

	rec, err := s.durable.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load durable snapshot: %w", err)
	}
	if rec == nil {
		return false, nil
	}
	if !rec.Fresh(now, s.freshness) {
		s.logger.Debug("discarding stale durable snapshot",
			"age", now.Sub(rec.Timestamp),
		)
		return false, nil
	}

	s.mu.Lock()
	rec.applyTo(&s.live)
	s.mu.Unlock()

	s.logger.Debug("session restored", "source", "durable", "client_id", rec.ClientID)
	return true, nil
}

// Memory is a Durable kept in process memory. It is the "memory" snapshot
// backend and a test double.
type Memory struct {
	mu  sync.Mutex
	rec *Record
}

// NewMemory creates an empty in-memory durable slot.
func NewMemory() *Memory {
	return &Memory{}
}

// Save implements Durable.
func (m *Memory) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := rec.clone()
	m.rec = &c
	return nil
}

// Load implements Durable.
func (m *Memory) Load(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return nil, nil
	}
	c := m.rec.clone()
	return &c, nil
}
