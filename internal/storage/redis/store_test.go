package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/ratel-client/internal/session"
)

func testStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	addr := os.Getenv("RATEL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("RATEL_TEST_REDIS_ADDR not set")
	}

	client, err := Connect(context.Background(), Config{Addr: addr})
	require.NoError(t, err)

	s := NewStore(client, "test-"+uuid.NewString(), ttl)
	t.Cleanup(func() {
		_ = client.Del(context.Background(), s.Key()).Err()
		_ = s.Close()
	})
	return s
}

func TestNewStore_Key(t *testing.T) {
	s := NewStore(nil, "alice", time.Minute)
	assert.Equal(t, "ratel:session:alice", s.Key())
}

func TestStore_SaveLoad(t *testing.T) {
	s := testStore(t, time.Minute)
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	rec := session.Record{ClientID: 3, User: session.Profile{Nickname: "frank"}, Timestamp: time.Now().UTC()}
	require.NoError(t, s.Save(ctx, rec))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.ClientID)
	assert.Equal(t, "frank", got.User.Nickname)

	ttl, err := s.client.TTL(ctx, s.Key()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestStore_ExpiresWithTTL(t *testing.T) {
	s := testStore(t, 100*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, session.Record{ClientID: 1, Timestamp: time.Now()}))
	time.Sleep(300 * time.Millisecond)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
