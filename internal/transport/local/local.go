// Package local provides an in-process transport pair backed by channels.
// It exists for tests and for embedding a server and client in the same
// binary without sockets.
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/relayrpc/internal/ctxlog"
	"github.com/vk/relayrpc/internal/transport"
)

// message is one request in flight from client to server.
type message struct {
	payload []byte
	reply   chan []byte // nil for one-way sends
}

// Pair couples a Server and Client end over a shared channel.
type Pair struct {
	ch chan message
}

// NewPair creates a connected transport pair. buffer bounds the number of
// requests queued ahead of the server loop.
func NewPair(buffer int) *Pair {
	return &Pair{ch: make(chan message, buffer)}
}

// Server returns the receiving end.
func (p *Pair) Server() transport.Server {
	return &server{ch: p.ch, stop: make(chan struct{})}
}

// Client returns the sending end.
func (p *Pair) Client() transport.Client {
	return &client{ch: p.ch}
}

type server struct {
	ch   chan message
	stop chan struct{}
	once sync.Once
}

func (s *server) Start(ctx context.Context, handler transport.Handler) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Local transport started.")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case msg := <-s.ch:
			reply, err := handler(ctx, msg.payload)
			if err != nil {
				logger.Error("Local transport handler failed.", "error", err)
				continue
			}
			if msg.reply != nil && reply != nil {
				msg.reply <- reply
			}
			if msg.reply != nil && reply == nil {
				close(msg.reply)
			}
		}
	}
}

func (s *server) Stop(ctx context.Context) error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

type client struct {
	ch chan message
}

func (c *client) Open(ctx context.Context) error { return nil }

func (c *client) Close(ctx context.Context) error { return nil }

func (c *client) Send(ctx context.Context, msg []byte, expectReply bool) ([]byte, error) {
	var replyCh chan []byte
	if expectReply {
		replyCh = make(chan []byte, 1)
	}

	select {
	case c.ch <- message{payload: msg, reply: replyCh}:
	case <-ctx.Done():
		return nil, fmt.Errorf("sending over local transport: %w", ctx.Err())
	}

	if !expectReply {
		return nil, nil
	}

	select {
	case reply, ok := <-replyCh:
		if !ok {
			return nil, fmt.Errorf("server closed reply channel without a response")
		}
		return reply, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("awaiting reply over local transport: %w", ctx.Err())
	}
}
