// Package transport defines the byte-level contracts between the RPC server
// or client and a concrete carrier. Transports move opaque messages; they
// know nothing about protocols, codecs, or dispatch.
package transport

import "context"

// Handler processes one inbound message and returns the reply bytes. A nil
// reply with a nil error means no reply is owed (a notification).
type Handler func(ctx context.Context, msg []byte) ([]byte, error)

// Server is the receiving side of a transport. Start blocks until the
// transport shuts down or ctx is cancelled; every inbound message is handed
// to handler.
type Server interface {
	Start(ctx context.Context, handler Handler) error
	Stop(ctx context.Context) error
}

// Client is the sending side of a transport.
type Client interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error

	// Send delivers msg. When expectReply is true it blocks until the
	// reply arrives (or ctx is done); otherwise it returns immediately
	// with nil bytes.
	Send(ctx context.Context, msg []byte, expectReply bool) ([]byte, error)
}
