// Package sio is a client-side transport that carries RPC messages as
// socket.io events: each call is emitted on a request event and the reply
// arrives on a response event. It suits deployments that already expose a
// socket.io surface and bridge events to an RPC server.
//
// socket.io has no per-event reply correlation, so the transport serializes
// exchanges; out-of-order correlation stays a protocol concern.
package sio

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/relayrpc/internal/ctxlog"
)

// Options configure the socket.io client transport.
type Options struct {
	// URL is the socket.io endpoint, e.g. "http://host:3000/socket.io".
	URL string

	// Namespace to join; "/" when empty.
	Namespace string

	// RequestEvent is the event name requests are emitted on. Defaults to
	// "rpc.request".
	RequestEvent string

	// ResponseEvent is the event name replies arrive on. Defaults to
	// "rpc.response".
	ResponseEvent string
}

// Client implements transport.Client over a socket.io connection.
type Client struct {
	opts Options

	mu      sync.Mutex
	io      *socket.Socket
	manager *socket.Manager
	replies chan replyOrErr
}

type replyOrErr struct {
	payload []byte
	err     error
}

// NewClient creates an unconnected socket.io transport client.
func NewClient(opts Options) *Client {
	if opts.Namespace == "" {
		opts.Namespace = "/"
	}
	if opts.RequestEvent == "" {
		opts.RequestEvent = "rpc.request"
	}
	if opts.ResponseEvent == "" {
		opts.ResponseEvent = "rpc.response"
	}
	return &Client{opts: opts}
}

// Open connects and joins the namespace, blocking until the connection is
// established or ctx is done.
func (c *Client) Open(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("transport", "socketio", "url", c.opts.URL)

	parsed, err := url.Parse(c.opts.URL)
	if err != nil {
		return fmt.Errorf("parsing socket.io url: %w", err)
	}

	base := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	sockOpts := socket.DefaultOptions()
	if parsed.Path != "" {
		sockOpts.SetPath(parsed.Path)
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(base, sockOpts)
	io := manager.Socket(c.opts.Namespace, sockOpts)

	connected := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		logger.Debug("socket.io connected.", "sid", io.Id())
		connected <- nil
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				connected <- err
				return
			}
		}
		connected <- fmt.Errorf("socket.io connect failed")
	})

	replies := make(chan replyOrErr, 1)
	io.On(types.EventName(c.opts.ResponseEvent), func(data ...any) {
		replies <- decodeReply(data)
	})

	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return fmt.Errorf("connecting socket.io transport: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return fmt.Errorf("connecting socket.io transport: %w", ctx.Err())
	}

	c.mu.Lock()
	c.io = io
	c.manager = manager
	c.replies = replies
	c.mu.Unlock()
	return nil
}

// Close disconnects from the namespace.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.io == nil {
		return nil
	}
	c.io.Disconnect()
	c.io = nil
	c.manager = nil
	return nil
}

// Send emits the message on the request event and, when a reply is
// expected, waits for the next response event.
func (c *Client) Send(ctx context.Context, msg []byte, expectReply bool) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.io == nil {
		return nil, fmt.Errorf("socket.io transport client is not open")
	}

	// Drain a stale reply left behind by a cancelled exchange.
	select {
	case <-c.replies:
	default:
	}

	c.io.Emit(c.opts.RequestEvent, string(msg))
	if !expectReply {
		return nil, nil
	}

	select {
	case r := <-c.replies:
		return r.payload, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("awaiting socket.io reply: %w", ctx.Err())
	}
}

// decodeReply extracts the serialized message from a response event's
// arguments. Peers must emit the message as a string or binary payload.
func decodeReply(data []any) replyOrErr {
	if len(data) == 0 {
		return replyOrErr{err: fmt.Errorf("response event carried no payload")}
	}
	switch v := data[0].(type) {
	case string:
		return replyOrErr{payload: []byte(v)}
	case []byte:
		return replyOrErr{payload: v}
	default:
		return replyOrErr{err: fmt.Errorf("response event payload has unsupported type %T", v)}
	}
}
