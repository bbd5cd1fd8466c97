package session

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestStore(t *testing.T, durable Durable) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	s := NewStore(durable, 5*time.Minute, nil)
	s.now = clock.Now
	return s, clock
}

func seed(s *Store) {
	s.Update(func(sess *Session) {
		sess.ClientID = 42
		sess.User.Nickname = "alice"
		sess.User.Watching = true
		sess.Room.LastPokers = json.RawMessage(`[{"level":"3"}]`)
		sess.Room.LastSellerNickname = "bob"
		sess.Room.LastSellerType = "landlord"
	})
}

func TestStore_NewSessionIsUnassigned(t *testing.T) {
	s := NewStore(nil, 0, nil)
	got := s.Get()

	assert.Equal(t, UnassignedClientID, got.ClientID)
	assert.False(t, got.Assigned())
	assert.Equal(t, DefaultFreshness, s.Freshness())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t, nil)
	seed(s)

	got := s.Get()
	got.Room.LastPokers[0] = 'X'
	got.User.Nickname = "mallory"

	again := s.Get()
	assert.Equal(t, "alice", again.User.Nickname)
	assert.JSONEq(t, `[{"level":"3"}]`, string(again.Room.LastPokers))
}

func TestStore_RestoreFromMemoryWithinWindow(t *testing.T) {
	s, clock := newTestStore(t, nil)
	seed(s)

	_, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	s.Update(func(sess *Session) {
		sess.ClientID = UnassignedClientID
		sess.User = Profile{}
		sess.Room = RoomFacts{}
		sess.Interactive = true
	})

	clock.now = clock.now.Add(4*time.Minute + 59*time.Second)
	ok, err := s.Restore(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	got := s.Get()
	assert.Equal(t, 42, got.ClientID)
	assert.Equal(t, Profile{Nickname: "alice", Watching: true}, got.User)
	assert.Equal(t, "bob", got.Room.LastSellerNickname)
	assert.True(t, got.Interactive, "live-only field must be left alone")
}

func TestStore_RestoreRejectsStaleSnapshot(t *testing.T) {
	durable := NewMemory()
	s, clock := newTestStore(t, durable)
	seed(s)

	_, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	s.Update(func(sess *Session) { *sess = New() })

	clock.now = clock.now.Add(5*time.Minute + time.Second)
	ok, err := s.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, UnassignedClientID, s.Get().ClientID)
}

func TestStore_RestoreFallsBackToDurable(t *testing.T) {
	durable := NewMemory()

	// First process writes the snapshot.
	first, clock := newTestStore(t, durable)
	seed(first)
	_, err := first.Snapshot(context.Background())
	require.NoError(t, err)

	// Second process has an empty in-process slot.
	second := NewStore(durable, 5*time.Minute, nil)
	second.now = func() time.Time { return clock.now.Add(time.Minute) }

	ok, err := second.Restore(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, second.Get().ClientID)
	assert.Equal(t, "alice", second.Get().User.Nickname)
}

func TestStore_RestoreWithNothingSaved(t *testing.T) {
	s, _ := newTestStore(t, NewMemory())

	ok, err := s.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

type failingDurable struct{}

func (failingDurable) Save(context.Context, Record) error { return errors.New("disk full") }
func (failingDurable) Load(context.Context) (*Record, error) {
	return nil, errors.New("disk gone")
}

func TestStore_DurableFailureKeepsMemorySlot(t *testing.T) {
	s, _ := newTestStore(t, failingDurable{})
	seed(s)

	_, err := s.Snapshot(context.Background())
	require.Error(t, err)

	s.Update(func(sess *Session) { *sess = New() })

	ok, err := s.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, s.Get().ClientID)
}

func TestStore_DurableLoadError(t *testing.T) {
	s, _ := newTestStore(t, failingDurable{})

	ok, err := s.Restore(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	f := NewFile(path)

	rec, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rec, "missing file means no snapshot")

	at := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	want := Record{
		ClientID:  7,
		User:      Profile{Nickname: "carol"},
		Room:      RoomFacts{LastPokers: json.RawMessage(`["A","A"]`), LastSellerType: "peasant"},
		Timestamp: at,
	}
	require.NoError(t, f.Save(context.Background(), want))

	got, err := f.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 7, got.ClientID)
	assert.Equal(t, "carol", got.User.Nickname)
	assert.JSONEq(t, `["A","A"]`, string(got.Room.LastPokers))
	assert.True(t, got.Timestamp.Equal(at))
}

func TestFile_StoreRestoreAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	first, clock := newTestStore(t, NewFile(path))
	seed(first)
	_, err := first.Snapshot(context.Background())
	require.NoError(t, err)

	second := NewStore(NewFile(path), 5*time.Minute, nil)
	second.now = func() time.Time { return clock.now.Add(2 * time.Minute) }

	ok, err := second.Restore(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "landlord", second.Get().Room.LastSellerType)
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory()
	assert.ErrorIs(t, m.Save(ctx, Record{}), context.Canceled)
	_, err := m.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
