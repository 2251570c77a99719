package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/relayrpc/internal/config"
	"github.com/vk/relayrpc/internal/protocol"
	"github.com/vk/relayrpc/internal/registry"
)

type stubService struct{}

func (stubService) Methods() []registry.MethodDef {
	return []registry.MethodDef{
		{Name: "ping", Handler: func(ctx context.Context, call *registry.Call) (any, error) {
			return "pong", nil
		}},
	}
}

func TestNewApp_CoreMounts(t *testing.T) {
	t.Parallel()

	a, _ := SetupAppTest(t, config.Default())

	names := a.Registry().AllNames()
	assert.Contains(t, names, "echo")
	assert.Contains(t, names, "reverse")
	assert.Contains(t, names, "clock.now")
	assert.Contains(t, names, "system.list_methods")
}

func TestApp_DispatchEcho(t *testing.T) {
	t.Parallel()

	a, _ := SetupAppTest(t, config.Default())

	resp := a.Dispatcher().Dispatch(context.Background(), &protocol.Request{
		Method: "echo",
		Args:   []any{json.Number("42")},
		ID:     "1",
	})

	require.NotNil(t, resp)
	require.False(t, resp.IsError(), "unexpected error: %v", resp.Err)
	assert.Equal(t, json.Number("42"), resp.Result)
}

func TestApp_SystemListMethods(t *testing.T) {
	t.Parallel()

	a, _ := SetupAppTest(t, config.Default())

	resp := a.Dispatcher().Dispatch(context.Background(), &protocol.Request{
		Method: "system.list_methods",
		ID:     "1",
	})

	require.False(t, resp.IsError(), "unexpected error: %v", resp.Err)
	names, ok := resp.Result.([]string)
	require.True(t, ok)
	assert.Contains(t, names, "clock.sleep_ms")
	assert.Contains(t, names, "system.list_methods")
}

func TestApp_RunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Listeners = []config.Listener{{Kind: "http", Addr: "127.0.0.1:0", Path: "/rpc", Codec: "json"}}
	a, logBuffer := SetupAppTest(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	assert.Contains(t, logBuffer.String(), "Serving")
}

func TestApp_CustomMountOverridesCore(t *testing.T) {
	t.Parallel()

	a, _ := SetupAppTest(t, config.Default(), Mount{Prefix: "util.", Service: stubService{}})

	names := a.Registry().AllNames()
	assert.Contains(t, names, "util.ping")
	assert.NotContains(t, names, "echo", "explicit mounts replace the core set")
}
