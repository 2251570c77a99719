package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/relayrpc/internal/codec"
	"github.com/vk/relayrpc/internal/dispatch"
	"github.com/vk/relayrpc/internal/protocol"
	"github.com/vk/relayrpc/internal/protocol/jsonrpc"
	"github.com/vk/relayrpc/internal/registry"
	"github.com/vk/relayrpc/internal/rpcerr"
	"github.com/vk/relayrpc/internal/schema"
	"github.com/vk/relayrpc/internal/server"
	"github.com/vk/relayrpc/internal/transport/local"
)

// notified records one-way deliveries so tests can await them.
type notified struct {
	mu    sync.Mutex
	calls []any
	ch    chan struct{}
}

func newNotified() *notified {
	return &notified{ch: make(chan struct{}, 8)}
}

func (n *notified) record(v any) {
	n.mu.Lock()
	n.calls = append(n.calls, v)
	n.mu.Unlock()
	n.ch <- struct{}{}
}

// startBackend serves echo-style methods plus a "math." namespace over a
// local pair and returns a connected client.
func startBackend(t *testing.T) (*Client, *notified) {
	t.Helper()

	reg := registry.New()
	require.NoError(t, reg.AddMethod("echo", func(ctx context.Context, call *registry.Call) (any, error) {
		return call.Arg(0), nil
	}, registry.WithParams(schema.MustParams(schema.Param{Name: "x", Required: true}))))

	require.NoError(t, reg.AddMethod("fail", func(ctx context.Context, call *registry.Call) (any, error) {
		return nil, rpcerr.New(-32050, "teapot", nil)
	}))

	n := newNotified()
	require.NoError(t, reg.AddMethod("log", func(ctx context.Context, call *registry.Call) (any, error) {
		n.record(call.Arg(0))
		return nil, nil
	}, registry.WithParams(schema.MustParams(schema.Param{Name: "line", Type: cty.String, Required: true}))))

	math := registry.New()
	require.NoError(t, math.AddMethod("add", func(ctx context.Context, call *registry.Call) (any, error) {
		a, _ := call.Arg(0).(json.Number).Int64()
		b, _ := call.Arg(1).(json.Number).Int64()
		return a + b, nil
	}, registry.WithParams(schema.MustParams(
		schema.Param{Name: "a", Type: cty.Number, Required: true},
		schema.Param{Name: "b", Type: cty.Number, Required: true},
	))))
	require.NoError(t, reg.AddNamespace(math, "math."))

	pair := local.NewPair(4)
	srv := server.New(jsonrpc.New(), codec.JSON{}, dispatch.New(reg), pair.Server())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = srv.Serve(ctx)
	}()

	client := New(jsonrpc.New(), codec.JSON{}, pair.Client())
	require.NoError(t, client.Open(ctx))

	t.Cleanup(func() {
		_ = client.Close(context.Background())
		cancel()
		wg.Wait()
	})

	return client, n
}

func callCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_Call(t *testing.T) {
	t.Parallel()
	client, _ := startBackend(t)

	result, err := client.Call(callCtx(t), "echo", []any{42}, nil)

	require.NoError(t, err)
	assert.Equal(t, json.Number("42"), result)
}

func TestClient_KeywordCall(t *testing.T) {
	t.Parallel()
	client, _ := startBackend(t)

	result, err := client.Call(callCtx(t), "echo", nil, protocol.KwargsFrom("x", "hello"))

	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestClient_RemoteDomainError(t *testing.T) {
	t.Parallel()
	client, _ := startBackend(t)

	_, err := client.Call(callCtx(t), "fail", nil, nil)

	var rpcErr *rpcerr.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32050, rpcErr.Code)
	assert.Equal(t, "teapot", rpcErr.Message)
}

func TestClient_MethodNotFound(t *testing.T) {
	t.Parallel()
	client, _ := startBackend(t)

	_, err := client.Call(callCtx(t), "nope", nil, nil)

	var rpcErr *rpcerr.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, rpcerr.CodeMethodNotFound, rpcErr.Code)
}

func TestClient_InvalidParams(t *testing.T) {
	t.Parallel()
	client, _ := startBackend(t)

	_, err := client.Call(callCtx(t), "echo", []any{1, 2}, nil)

	var rpcErr *rpcerr.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, rpcerr.CodeInvalidParams, rpcErr.Code)
}

func TestClient_NamespacedCall(t *testing.T) {
	t.Parallel()
	client, _ := startBackend(t)

	result, err := client.Call(callCtx(t), "math.add", []any{2, 3}, nil)

	require.NoError(t, err)
	assert.Equal(t, json.Number("5"), result)
}

func TestClient_Proxy(t *testing.T) {
	t.Parallel()
	client, _ := startBackend(t)

	math := client.Proxy("math.")
	result, err := math.Call(callCtx(t), "add", []any{10, 20}, nil)

	require.NoError(t, err)
	assert.Equal(t, json.Number("30"), result)
}

func TestClient_Notify(t *testing.T) {
	t.Parallel()
	client, n := startBackend(t)

	require.NoError(t, client.Notify(callCtx(t), "log", []any{"ping"}, nil))

	select {
	case <-n.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("notification never reached the handler")
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Equal(t, []any{"ping"}, n.calls)
}

func TestClient_ClosedClientRejectsCalls(t *testing.T) {
	t.Parallel()
	client, _ := startBackend(t)

	require.NoError(t, client.Close(context.Background()))

	_, err := client.Call(callCtx(t), "echo", []any{1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")

	var rpcErr *rpcerr.Error
	assert.False(t, errors.As(err, &rpcErr), "a local usage error is not a remote error")
}

func TestClient_OpenIsIdempotent(t *testing.T) {
	t.Parallel()
	client, _ := startBackend(t)

	require.NoError(t, client.Open(context.Background()))
	require.NoError(t, client.Open(context.Background()))
}
