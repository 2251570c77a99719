// Package dispatch implements the request-handling pipeline: resolve the
// method, bind the arguments, invoke the handler, and convert every outcome
// into a response.
//
// Dispatch never raises to its caller. Failures the handler did not
// deliberately produce are stripped to a bare internal error before they can
// reach the wire; the suppressed cause is logged server-side only.
package dispatch

import (
	"context"
	"fmt"

	"github.com/vk/relayrpc/internal/ctxlog"
	"github.com/vk/relayrpc/internal/protocol"
	"github.com/vk/relayrpc/internal/registry"
	"github.com/vk/relayrpc/internal/rpcerr"
)

// Dispatcher routes decoded requests through a read-only registry. It is
// safe for concurrent use once registration has finished.
type Dispatcher struct {
	reg *registry.Registry
}

// New creates a dispatcher over reg. The registry must not be mutated
// while requests are in flight.
func New(reg *registry.Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// Registry returns the routing surface, for setup-phase composition.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.reg
}

// Dispatch fully handles one request and returns exactly one response,
// except when ctx was cancelled mid-invocation: then no response is emitted
// (nil) and the interruption is logged, since a partial answer would be
// worse than none. Dispatch never returns an error and never panics.
func (d *Dispatcher) Dispatch(ctx context.Context, req *protocol.Request) *protocol.Response {
	logger := ctxlog.FromContext(ctx).With("method", req.Method)

	m, err := d.reg.Resolve(req.Method)
	if err != nil {
		logger.Debug("Method not found.")
		return protocol.NewError(req, rpcerr.MethodNotFound())
	}

	bound, err := m.Params.Bind(req.Args, req.Kwargs)
	if err != nil {
		logger.Debug("Argument binding failed.", "reason", err)
		return protocol.NewError(req, rpcerr.InvalidParams(err.Error()))
	}

	var forwarded *protocol.Request
	if m.ForwardRequest {
		forwarded = req
	}
	result, err := invoke(ctx, m, registry.NewCall(bound, forwarded))

	switch {
	case err == nil:
		return protocol.NewResult(req, result)

	case ctx.Err() != nil:
		logger.Warn("Dispatch cancelled mid-invocation.", "cause", err)
		return nil

	default:
		if domain, ok := rpcerr.FromError(err); ok {
			// A failure the handler raised as part of its own contract;
			// its detail belongs to the caller.
			return protocol.NewError(req, domain)
		}
		logger.Error("Handler failed.", "error", err)
		return protocol.NewError(req, rpcerr.Internal())
	}
}

// DispatchBatch handles each sub-request independently, in the order given,
// and collects the responses in that order. One sub-request's failure never
// aborts the others. Cancellation stops further sub-requests from starting
// but leaves already-collected responses intact.
func (d *Dispatcher) DispatchBatch(ctx context.Context, batch protocol.Batch) []*protocol.Response {
	responses := make([]*protocol.Response, 0, len(batch))
	for _, req := range batch {
		if ctx.Err() != nil {
			break
		}
		if resp := d.Dispatch(ctx, req); resp != nil {
			responses = append(responses, resp)
		}
	}
	return responses
}

// invoke runs the handler, converting a panic into an ordinary error so
// containment treats it like any other internal failure.
func invoke(ctx context.Context, m *registry.Method, call *registry.Call) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %q panicked: %v", m.Name, r)
		}
	}()
	return m.Handler(ctx, call)
}
