package integrationtests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/relayrpc/internal/client"
	"github.com/vk/relayrpc/internal/codec"
	"github.com/vk/relayrpc/internal/config"
	"github.com/vk/relayrpc/internal/protocol/jsonrpc"
	"github.com/vk/relayrpc/internal/rpcerr"
	"github.com/vk/relayrpc/internal/transport/ws"
)

func dialWS(t *testing.T) *client.Client {
	t.Helper()

	addr := freePort(t)
	startApp(t, config.Listener{Kind: "ws", Addr: addr, Path: "/rpc", Codec: "json"})

	cl := client.New(jsonrpc.New(), codec.JSON{}, ws.NewClient("ws://"+addr+"/rpc"))
	require.NoError(t, cl.Open(context.Background()))
	t.Cleanup(func() { _ = cl.Close(context.Background()) })
	return cl
}

func TestWS_EchoRoundTrip(t *testing.T) {
	t.Parallel()
	cl := dialWS(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := cl.Call(ctx, "echo", []any{42}, nil)
	require.NoError(t, err)
	assert.Equal(t, json.Number("42"), result)
}

func TestWS_SequentialCallsShareOneConnection(t *testing.T) {
	t.Parallel()
	cl := dialWS(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		result, err := cl.Call(ctx, "repeat", []any{"ab", 2}, nil)
		require.NoError(t, err)
		assert.Equal(t, "abab", result)
	}
}

func TestWS_InvalidParams(t *testing.T) {
	t.Parallel()
	cl := dialWS(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := cl.Call(ctx, "reverse", []any{42}, nil)

	var rpcErr *rpcerr.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, rpcerr.CodeInvalidParams, rpcErr.Code)
}

func TestWS_NotifyThenCall(t *testing.T) {
	t.Parallel()
	cl := dialWS(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// A notification owes no frame, so the next call's reply must still
	// line up with the call.
	require.NoError(t, cl.Notify(ctx, "echo", []any{"dropped"}, nil))

	result, err := cl.Call(ctx, "echo", []any{"kept"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "kept", result)
}
