package integrationtests

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vk/relayrpc/internal/app"
	"github.com/vk/relayrpc/internal/config"
)

// freePort asks the kernel for an unused loopback address.
func freePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// startApp runs the core services on the given listener until the test ends.
func startApp(t *testing.T, listener config.Listener) {
	t.Helper()

	cfg := config.Default()
	cfg.Listeners = []config.Listener{listener}
	a, _ := app.SetupAppTest(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("app did not shut down in time")
		}
	})

	waitReachable(t, listener.Addr)
}

// waitReachable polls the address until the listener accepts connections.
func waitReachable(t *testing.T, addr string) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("listener on %s never came up", addr)
}
