package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/ratel-client/internal/database"
	"github.com/rickgao/ratel-client/internal/session"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("RATEL_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("RATEL_TEST_POSTGRES_URL not set")
	}

	ctx := context.Background()
	pool, err := database.ConnectURL(ctx, url)
	require.NoError(t, err)

	s, err := New(ctx, pool, "test-"+uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM session_snapshots WHERE key = $1`, s.key)
		_ = s.Close()
	})
	return s
}

func TestStore_SaveLoadOverwrite(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	at := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, s.Save(ctx, session.Record{ClientID: 1, Timestamp: at}))
	require.NoError(t, s.Save(ctx, session.Record{ClientID: 2, User: session.Profile{Nickname: "gina"}, Timestamp: at}))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ClientID)
	assert.Equal(t, "gina", got.User.Nickname)
	assert.True(t, got.Timestamp.Equal(at))
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(context.Background(), nil, "")
	assert.Error(t, err)
}
