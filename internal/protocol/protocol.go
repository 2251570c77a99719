package protocol

import (
	"github.com/vk/relayrpc/internal/rpcerr"
)

// Request is a decoded RPC call. It is consumed, never owned: the dispatch
// engine treats it as read-only.
type Request struct {
	// Method is the possibly-namespaced method name, e.g. "math.add".
	Method string

	// Args are the positional arguments in call order.
	Args []any

	// Kwargs are the keyword arguments, insertion order preserved. May be
	// nil when the call has none.
	Kwargs *Kwargs

	// ID is an opaque correlation token for protocols that support
	// out-of-order delivery. Nil when the protocol does not correlate.
	ID any

	// OneWay marks a notification: the caller does not expect a reply.
	OneWay bool
}

// Response is the single outcome of dispatching one request: either a
// result or an error, never both.
type Response struct {
	// ID is carried over from the originating request.
	ID any

	// Result holds the handler's return value on success.
	Result any

	// Err holds the error descriptor on failure.
	Err *rpcerr.Error
}

// IsError reports whether the response describes a failure.
func (r *Response) IsError() bool {
	return r.Err != nil
}

// NewResult builds a success response for req, propagating its ID.
func NewResult(req *Request, result any) *Response {
	resp := &Response{Result: result}
	if req != nil {
		resp.ID = req.ID
	}
	return resp
}

// NewError builds an error response for req, propagating its ID. A nil req
// is allowed for failures that occur before a request exists, e.g. parse
// errors.
func NewError(req *Request, err *rpcerr.Error) *Response {
	resp := &Response{Err: err}
	if req != nil {
		resp.ID = req.ID
	}
	return resp
}

// Batch is an ordered group of requests presented as one logical unit by
// the protocol layer. Execution order is in scope for the dispatch engine;
// framing is not.
type Batch []*Request

// Protocol translates between protocol-shaped documents (already decoded
// from bytes by a codec) and the Request/Response contracts above.
type Protocol interface {
	// CreateRequest builds an outgoing request. Correlation IDs, version
	// tags, and the args/kwargs rules are protocol concerns.
	CreateRequest(method string, args []any, kwargs *Kwargs, oneWay bool) (*Request, error)

	// EncodeRequest renders a request as a document for a codec.
	EncodeRequest(req *Request) (map[string]any, error)

	// ParseRequest validates and converts an incoming document. Failures
	// must be *rpcerr.Error values (Parse or InvalidRequest kinds).
	ParseRequest(doc map[string]any) (*Request, error)

	// EncodeResponse renders a response as a document for a codec.
	EncodeResponse(resp *Response) (map[string]any, error)

	// ParseResponse validates and converts an incoming reply document.
	ParseResponse(doc map[string]any) (*Response, error)
}
