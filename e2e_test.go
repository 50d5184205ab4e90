package ember_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emberkv/ember"
	"github.com/emberkv/ember/pkg/store"
)

// freePort mirrors l00pss-redkit's own getFreePort test helper: bind to
// port 0, read back what the kernel picked, then release it immediately
// so the real server can bind it a moment later.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// startServer boots a real emberd listener on a free loopback port and
// returns a go-redis client already dialed to it; shutdown is registered
// with t.Cleanup.
func startServer(t *testing.T) *redis.Client {
	t.Helper()
	port := freePort(t)
	addr := fmt.Sprintf("tcp://127.0.0.1:%d", port)

	srv := ember.NewServer(store.New(), ember.Options{Logger: zap.NewNop()})

	errCh := make(chan error, 1)
	go func() {
		errCh <- ember.ListenAndServe(addr, ember.Options{}, srv)
	}()

	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("127.0.0.1:%d", port),
		DialTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// The server has no PING verb (it would reply with an unknown-command
	// error), so readiness is probed with ECHO instead.
	require.Eventually(t, func() bool {
		return client.Do(ctx, "echo", "ready").Err() == nil
	}, 2*time.Second, 10*time.Millisecond, "server never came up")

	t.Cleanup(func() {
		client.Close()
		_ = srv.Close()
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
		}
	})

	return client
}

// The six numbered end-to-end scenarios from spec.md §8, driven through a
// real go-redis client rather than the internal mockConn harness, so the
// wire format is checked against a production client's own parser.

func TestE2ESetThenGet(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	require.Equal(t, "OK", client.Set(ctx, "greeting", "hello", 0).Val())
	require.Equal(t, "hello", client.Get(ctx, "greeting").Val())
}

func TestE2EGetMissingKeyReturnsNil(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	_, err := client.Get(ctx, "never-set").Result()
	require.ErrorIs(t, err, redis.Nil)
}

// HSET here is the single-pair form this server implements (key field
// value), not real Redis's variadic multi-pair form, so it's driven
// through Do rather than the typed HSet command — and because this
// server's HSET always replies SimpleString OK (per spec.md §4.4) rather
// than the Integer "fields added" count go-redis's typed HSet command
// expects on the wire.
func TestE2EHSetThenHGetAllSorted(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	require.Equal(t, "OK", client.Do(ctx, "hset", "profile", "zeta", "last").Val())
	require.Equal(t, "OK", client.Do(ctx, "hset", "profile", "alpha", "first").Val())

	// Read the raw Array reply through Do so the field order is observable
	// (the typed HGetAll command collapses it into an unordered Go map).
	got := client.Do(ctx, "hgetall", "profile").Val()
	require.Equal(t, []interface{}{"alpha", "first", "zeta", "last"}, got)
}

func TestE2EHMGetMixedHitAndMiss(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	client.Do(ctx, "hset", "profile", "first", "alpha")
	vals, err := client.HMGet(ctx, "profile", "first", "missing").Result()
	require.NoError(t, err)
	require.Equal(t, []interface{}{"alpha", nil}, vals)
}

// ECHO replies SimpleString rather than real Redis's BulkString, so this
// goes through Do rather than the typed Echo command for the same
// wire-shape reason as HSET above.
func TestE2EEchoRoundTrips(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	require.Equal(t, "ping-pong", client.Do(ctx, "echo", "ping-pong").Val())
}

func TestE2ESAddThenSIsMember(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	require.Equal(t, int64(1), client.SAdd(ctx, "tags", "go").Val())
	require.True(t, client.SIsMember(ctx, "tags", "go").Val())
	require.False(t, client.SIsMember(ctx, "tags", "rust").Val())
}
