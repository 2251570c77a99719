package registry

import (
	"fmt"

	"github.com/vk/relayrpc/internal/schema"
)

// MethodDef is one row of a service's method table: the exposed name, the
// handler, and its declared parameter schema. Building the table is the
// whole act of marking a method public; nothing is registered until the
// service is mounted.
type MethodDef struct {
	Name           string
	Handler        HandlerFunc
	Params         *schema.Params
	ForwardRequest bool
}

// Service is anything exposing a method table. A service package declares
// its table once; RegisterService turns it into a routable namespace.
type Service interface {
	Methods() []MethodDef
}

// RegisterService builds a fresh registry from the service's method table
// and attaches it as a child under prefix. This is the composition
// primitive for exposing an object's operations wholesale.
func (r *Registry) RegisterService(svc Service, prefix string) error {
	child := New()
	for _, def := range svc.Methods() {
		opts := []Option{WithParams(def.Params)}
		if def.ForwardRequest {
			opts = append(opts, WithForwardRequest())
		}
		if err := child.AddMethod(def.Name, def.Handler, opts...); err != nil {
			return fmt.Errorf("registering service under %q: %w", prefix, err)
		}
	}
	return r.AddNamespace(child, prefix)
}
