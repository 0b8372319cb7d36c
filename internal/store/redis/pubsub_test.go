package redis_test

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstore "github.com/gosuda/planboard/internal/store/redis"
)

func TestBoardChannel(t *testing.T) {
	t.Parallel()

	tenantID := uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")
	projectID := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()

		got := redisstore.BoardChannel(tenantID, projectID)
		assert.Equal(t, "board:aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee:11111111-2222-3333-4444-555555555555", got)
	})

	t.Run("nil UUIDs", func(t *testing.T) {
		t.Parallel()

		got := redisstore.BoardChannel(uuid.Nil, uuid.Nil)
		assert.Equal(t, "board:00000000-0000-0000-0000-000000000000:00000000-0000-0000-0000-000000000000", got)
	})

	t.Run("prefix", func(t *testing.T) {
		t.Parallel()

		got := redisstore.BoardChannel(tenantID, projectID)
		assert.True(t, strings.HasPrefix(got, "board:"), "expected prefix 'board:', got %q", got)
	})

	t.Run("contains both UUIDs", func(t *testing.T) {
		t.Parallel()

		got := redisstore.BoardChannel(tenantID, projectID)
		assert.Contains(t, got, tenantID.String())
		assert.Contains(t, got, projectID.String())
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()

		a := redisstore.BoardChannel(tenantID, projectID)
		b := redisstore.BoardChannel(tenantID, projectID)
		assert.Equal(t, a, b)
	})

	t.Run("different inputs produce different outputs", func(t *testing.T) {
		t.Parallel()

		otherProject := uuid.MustParse("99999999-8888-7777-6666-555544443333")
		a := redisstore.BoardChannel(tenantID, projectID)
		b := redisstore.BoardChannel(tenantID, otherProject)
		assert.NotEqual(t, a, b)
	})
}

func newPubSub(t *testing.T) (*redisstore.PubSub, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redisstore.NewFromClient(client), mr
}

func TestPubSub_PublishSubscribe(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, cleanup, err := ps.Subscribe(ctx, "board:test")
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, ps.Publish(ctx, "board:test", []byte("hello")))

	select {
	case msg := <-ch:
		assert.Equal(t, "hello", string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestPubSub_ChannelClosesOnCancel(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, cleanup, err := ps.Subscribe(ctx, "board:test")
	require.NoError(t, err)
	defer cleanup()

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestNew_PingFailure(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := redisstore.New(context.Background(), addr, "", 0)
	require.Error(t, err)
}
