package httpx

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// startEcho serves the given reply function and returns the server address.
func startEcho(t *testing.T, reply func(msg []byte) []byte) string {
	t.Helper()

	addr := freePort(t)
	srv := NewServer(addr, "/rpc", "application/json")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Start(ctx, func(ctx context.Context, msg []byte) ([]byte, error) {
			return reply(msg), nil
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			conn.Close()
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server on %s never came up", addr)
	return ""
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	addr := startEcho(t, func(msg []byte) []byte {
		return bytes.ToUpper(msg)
	})

	c := NewClient("http://"+addr+"/rpc", "application/json")
	require.NoError(t, c.Open(context.Background()))
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := c.Send(ctx, []byte("hello"), true)
	require.NoError(t, err)
	assert.Equal(t, []byte("HELLO"), reply)
}

func TestNoContentReply(t *testing.T) {
	t.Parallel()

	addr := startEcho(t, func(msg []byte) []byte { return nil })

	c := NewClient("http://"+addr+"/rpc", "application/json")
	require.NoError(t, c.Open(context.Background()))
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := c.Send(ctx, []byte("notify"), false)
	require.NoError(t, err)
	assert.Nil(t, reply)
}

func TestServerRejectsWrongMethod(t *testing.T) {
	t.Parallel()

	addr := startEcho(t, func(msg []byte) []byte { return msg })

	c := NewClient("http://"+addr+"/wrong-path", "application/json")
	require.NoError(t, c.Open(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.Send(ctx, []byte("x"), true)
	require.Error(t, err)
}
