// Package server runs the receive loop: decode an inbound message, parse it
// into one request or a batch, dispatch, and encode the reply. Protocol
// parse failures are answered with protocol error responses; nothing ever
// propagates to the transport as a Go error except transport breakage
// itself.
package server

import (
	"context"
	"fmt"

	"github.com/vk/relayrpc/internal/codec"
	"github.com/vk/relayrpc/internal/ctxlog"
	"github.com/vk/relayrpc/internal/dispatch"
	"github.com/vk/relayrpc/internal/protocol"
	"github.com/vk/relayrpc/internal/rpcerr"
	"github.com/vk/relayrpc/internal/transport"
)

// TraceFunc observes raw traffic: direction is "-->" for inbound and "<--"
// for outbound messages.
type TraceFunc func(direction string, msg []byte)

// Server wires a protocol binding, a codec, and a dispatcher behind one
// transport.
type Server struct {
	proto   protocol.Protocol
	codec   codec.Codec
	disp    *dispatch.Dispatcher
	tr      transport.Server
	trace   TraceFunc
	workers chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithTrace installs a traffic observer.
func WithTrace(fn TraceFunc) Option {
	return func(s *Server) { s.trace = fn }
}

// WithWorkers bounds how many inbound messages are processed at once.
// The default is 10.
func WithWorkers(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.workers = make(chan struct{}, n)
		}
	}
}

// New creates a server. The dispatcher's registry must be fully populated
// before Serve is called.
func New(proto protocol.Protocol, c codec.Codec, disp *dispatch.Dispatcher, tr transport.Server, opts ...Option) *Server {
	s := &Server{
		proto:   proto,
		codec:   c,
		disp:    disp,
		tr:      tr,
		workers: make(chan struct{}, 10),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve blocks, handling messages until ctx is cancelled or the transport
// stops.
func (s *Server) Serve(ctx context.Context) error {
	return s.tr.Start(ctx, s.handle)
}

// Stop shuts the transport down.
func (s *Server) Stop(ctx context.Context) error {
	return s.tr.Stop(ctx)
}

// handle processes one wire message end to end. A nil reply means no reply
// is owed (notifications, or a batch of them).
func (s *Server) handle(ctx context.Context, msg []byte) ([]byte, error) {
	select {
	case s.workers <- struct{}{}:
		defer func() { <-s.workers }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if s.trace != nil {
		s.trace("-->", msg)
	}

	doc, err := s.codec.Unmarshal(msg)
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Undecodable message.", "error", err)
		return s.encodeOne(ctx, protocol.NewError(nil, rpcerr.Parse(err.Error())))
	}

	var reply []byte
	switch v := doc.(type) {
	case map[string]any:
		reply, err = s.handleSingle(ctx, v)
	case []any:
		reply, err = s.handleBatch(ctx, v)
	default:
		reply, err = s.encodeOne(ctx, protocol.NewError(nil, rpcerr.InvalidRequest(fmt.Sprintf("message must be an object or an array, got %T", v))))
	}
	if err != nil {
		return nil, err
	}

	if s.trace != nil && reply != nil {
		s.trace("<--", reply)
	}
	return reply, nil
}

func (s *Server) handleSingle(ctx context.Context, doc map[string]any) ([]byte, error) {
	req, err := s.proto.ParseRequest(doc)
	if err != nil {
		return s.encodeOne(ctx, protocol.NewError(nil, toProtocolError(err)))
	}

	resp := s.disp.Dispatch(ctx, req)
	if resp == nil || req.OneWay {
		return nil, nil
	}
	return s.encodeOne(ctx, resp)
}

// handleBatch dispatches each element independently, in order. Elements
// that fail to parse yield error responses in place; notifications yield
// none. A batch made only of notifications owes no reply at all.
func (s *Server) handleBatch(ctx context.Context, elements []any) ([]byte, error) {
	docs := make([]any, 0, len(elements))
	for _, element := range elements {
		obj, ok := element.(map[string]any)
		if !ok {
			doc, err := s.encodeDoc(ctx, protocol.NewError(nil, rpcerr.InvalidRequest("batch elements must be objects")))
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		req, err := s.proto.ParseRequest(obj)
		if err != nil {
			doc, encErr := s.encodeDoc(ctx, protocol.NewError(nil, toProtocolError(err)))
			if encErr != nil {
				return nil, encErr
			}
			docs = append(docs, doc)
			continue
		}

		resp := s.disp.Dispatch(ctx, req)
		if resp == nil || req.OneWay {
			continue
		}
		doc, err := s.encodeDoc(ctx, resp)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, nil
	}
	return s.codec.Marshal(docs)
}

// encodeDoc renders resp as a document the codec is guaranteed to accept.
// A response that cannot be encoded (an unserializable handler result,
// typically) still owes the caller exactly one reply, so the cause is
// logged server-side and a bare internal error with the same id is
// rendered in its place. The fallback carries only the id, a code, and a
// fixed message, which every codec can encode.
func (s *Server) encodeDoc(ctx context.Context, resp *protocol.Response) (map[string]any, error) {
	doc, err := s.proto.EncodeResponse(resp)
	if err == nil {
		if _, err = s.codec.Marshal(doc); err == nil {
			return doc, nil
		}
	}
	ctxlog.FromContext(ctx).Error("Encoding response failed, substituting internal error.", "id", resp.ID, "error", err)

	fallback, err := s.proto.EncodeResponse(&protocol.Response{ID: resp.ID, Err: rpcerr.Internal()})
	if err != nil {
		return nil, fmt.Errorf("encoding fallback response: %w", err)
	}
	return fallback, nil
}

func (s *Server) encodeOne(ctx context.Context, resp *protocol.Response) ([]byte, error) {
	doc, err := s.encodeDoc(ctx, resp)
	if err != nil {
		return nil, err
	}
	return s.codec.Marshal(doc)
}

// toProtocolError keeps recognized protocol errors and downgrades anything
// else to a bare invalid-request error so parser internals stay private.
func toProtocolError(err error) *rpcerr.Error {
	if e, ok := rpcerr.FromError(err); ok {
		return e
	}
	return rpcerr.InvalidRequest("malformed request")
}
