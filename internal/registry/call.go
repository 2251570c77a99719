package registry

import (
	"context"

	"github.com/vk/relayrpc/internal/protocol"
	"github.com/vk/relayrpc/internal/schema"
)

// HandlerFunc is the contract every registered method implements. The call
// carries arguments already bound against the method's declared schema, so
// a handler never sees a malformed argument list. Handlers report domain
// failures by returning a *rpcerr.Error (or an error wrapping one); any
// other error is treated as internal and stripped before it reaches the
// caller.
type HandlerFunc func(ctx context.Context, call *Call) (any, error)

// Call is one validated invocation of a method.
type Call struct {
	bound *schema.Bound
	req   *protocol.Request
}

// NewCall packages bound arguments for a handler. req must be non-nil only
// for methods registered with WithForwardRequest.
func NewCall(bound *schema.Bound, req *protocol.Request) *Call {
	return &Call{bound: bound, req: req}
}

// Arg returns the value of the i-th declared parameter.
func (c *Call) Arg(i int) any {
	return c.bound.Pos(i)
}

// Get returns the value bound to the named parameter.
func (c *Call) Get(name string) (any, bool) {
	return c.bound.Name(name)
}

// Args returns all bound values in declaration order.
func (c *Call) Args() []any {
	return c.bound.Values()
}

// Request returns the originating request for methods registered with
// WithForwardRequest, nil otherwise.
func (c *Call) Request() *protocol.Request {
	return c.req
}
