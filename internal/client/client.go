// Package client makes RPC calls against a server reachable over any
// transport. Error responses surface as *rpcerr.Error values, so a caller
// can distinguish a remote domain failure from transport breakage with
// errors.As.
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/relayrpc/internal/codec"
	"github.com/vk/relayrpc/internal/protocol"
	"github.com/vk/relayrpc/internal/transport"
)

// Client couples a protocol binding, a codec, and a client transport.
type Client struct {
	proto protocol.Protocol
	codec codec.Codec
	tr    transport.Client

	mu     sync.Mutex
	active bool
}

// New creates an unopened client.
func New(proto protocol.Protocol, c codec.Codec, tr transport.Client) *Client {
	return &Client{proto: proto, codec: c, tr: tr}
}

// Open establishes the transport connection.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return nil
	}
	if err := c.tr.Open(ctx); err != nil {
		return err
	}
	c.active = true
	return nil
}

// Close tears the transport connection down.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return nil
	}
	c.active = false
	return c.tr.Close(ctx)
}

// Call invokes method and returns its result. A remote error response is
// returned as the *rpcerr.Error it carried.
func (c *Client) Call(ctx context.Context, method string, args []any, kwargs *protocol.Kwargs) (any, error) {
	return c.roundTrip(ctx, method, args, kwargs, false)
}

// Notify invokes method one-way: no reply is awaited and none is owed.
func (c *Client) Notify(ctx context.Context, method string, args []any, kwargs *protocol.Kwargs) error {
	_, err := c.roundTrip(ctx, method, args, kwargs, true)
	return err
}

func (c *Client) roundTrip(ctx context.Context, method string, args []any, kwargs *protocol.Kwargs, oneWay bool) (any, error) {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	if !active {
		return nil, fmt.Errorf("client is closed")
	}

	req, err := c.proto.CreateRequest(method, args, kwargs, oneWay)
	if err != nil {
		return nil, err
	}
	doc, err := c.proto.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	data, err := c.codec.Marshal(doc)
	if err != nil {
		return nil, err
	}

	reply, err := c.tr.Send(ctx, data, !oneWay)
	if err != nil {
		return nil, fmt.Errorf("calling %q: %w", method, err)
	}
	if oneWay {
		return nil, nil
	}

	decoded, err := c.codec.Unmarshal(reply)
	if err != nil {
		return nil, fmt.Errorf("decoding reply for %q: %w", method, err)
	}
	replyDoc, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("reply for %q is not an object", method)
	}
	resp, err := c.proto.ParseResponse(replyDoc)
	if err != nil {
		return nil, fmt.Errorf("parsing reply for %q: %w", method, err)
	}

	if resp.IsError() {
		return nil, resp.Err
	}
	return resp.Result, nil
}

// Proxy returns a caller whose method names are prefixed, matching a
// namespace mounted on the server.
func (c *Client) Proxy(prefix string) *Proxy {
	return &Proxy{client: c, prefix: prefix}
}

// Proxy scopes calls to a server-side namespace.
type Proxy struct {
	client *Client
	prefix string
}

// Call invokes prefix+method.
func (p *Proxy) Call(ctx context.Context, method string, args []any, kwargs *protocol.Kwargs) (any, error) {
	return p.client.Call(ctx, p.prefix+method, args, kwargs)
}

// Notify invokes prefix+method one-way.
func (p *Proxy) Notify(ctx context.Context, method string, args []any, kwargs *protocol.Kwargs) error {
	return p.client.Notify(ctx, p.prefix+method, args, kwargs)
}
