package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/ratel-client/internal/session"
)

func openTestStore(t *testing.T, path, key string) *Store {
	t.Helper()
	s, err := Open(path, key)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open("  ", "default")
	assert.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "x.db"), "")
	assert.Error(t, err)
}

func TestStore_SaveLoadOverwrite(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "snap.db"), "default")
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	at := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, session.Record{ClientID: 1, User: session.Profile{Nickname: "a"}, Timestamp: at}))
	require.NoError(t, s.Save(ctx, session.Record{ClientID: 2, User: session.Profile{Nickname: "b"}, Timestamp: at.Add(time.Second)}))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ClientID)
	assert.Equal(t, "b", got.User.Nickname)
	assert.True(t, got.Timestamp.Equal(at.Add(time.Second)))
}

func TestStore_KeysAreIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.db")
	a := openTestStore(t, path, "alice")
	b := openTestStore(t, path, "bob")
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, session.Record{ClientID: 10, Timestamp: time.Now()}))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = a.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10, got.ClientID)
}

func TestStore_RestoreThroughSessionStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.db")
	ctx := context.Background()

	first := session.NewStore(openTestStore(t, path, "default"), time.Minute, nil)
	first.Update(func(s *session.Session) {
		s.ClientID = 5
		s.User.Nickname = "eve"
	})
	_, err := first.Snapshot(ctx)
	require.NoError(t, err)

	second := session.NewStore(openTestStore(t, path, "default"), time.Minute, nil)
	ok, err := second.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "eve", second.Get().User.Nickname)
}
