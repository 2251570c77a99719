package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vk/relayrpc/internal/rpcerr"
	"github.com/vk/relayrpc/internal/schema"
)

// Method is one registered entry: the handler, its declared parameter
// schema, and the invocation mode. Immutable once inserted.
type Method struct {
	Name           string
	Handler        HandlerFunc
	Params         *schema.Params
	ForwardRequest bool
}

// Option configures a method at registration time.
type Option func(*Method)

// WithParams declares the handler's parameter schema. Without it the
// method accepts only empty calls.
func WithParams(p *schema.Params) Option {
	return func(m *Method) { m.Params = p }
}

// WithForwardRequest makes the dispatch engine hand the originating
// request object to the handler via Call.Request.
func WithForwardRequest() Option {
	return func(m *Method) { m.ForwardRequest = true }
}

// Registry holds directly registered methods and namespaced child
// registries for a single routing surface.
type Registry struct {
	methods map[string]*Method

	// prefixes remembers the order in which each prefix was first added;
	// children holds the registries attached under each prefix in
	// registration order.
	prefixes []string
	children map[string][]*Registry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		methods:  make(map[string]*Method),
		children: make(map[string][]*Registry),
	}
}

// AddMethod registers handler under name. Re-registering an existing name
// is an error and leaves the original entry unchanged.
func (r *Registry) AddMethod(name string, handler HandlerFunc, opts ...Option) error {
	if name == "" {
		return fmt.Errorf("method name must not be empty")
	}
	if handler == nil {
		return fmt.Errorf("method %q: handler must not be nil", name)
	}
	if _, exists := r.methods[name]; exists {
		return fmt.Errorf("method %q: %w", name, rpcerr.ErrDuplicateMethod)
	}

	m := &Method{Name: name, Handler: handler}
	for _, opt := range opts {
		opt(m)
	}

	slog.Debug("Registering method.", "name", name, "forward_request", m.ForwardRequest)
	r.methods[name] = m
	return nil
}

// Method performs an exact lookup in the direct map only.
func (r *Registry) Method(name string) (*Method, error) {
	m, ok := r.methods[name]
	if !ok {
		return nil, fmt.Errorf("method %q: %w", name, rpcerr.ErrNotFound)
	}
	return m, nil
}

// AddNamespace attaches child under prefix. Multiple children may share a
// prefix and are tried in registration order; the same child may be
// attached under several prefixes. Attachments that would make a registry
// its own descendant are rejected, since they would turn resolution into
// unbounded recursion.
func (r *Registry) AddNamespace(child *Registry, prefix string) error {
	if child == nil {
		return fmt.Errorf("namespace %q: child registry must not be nil", prefix)
	}
	if child.reaches(r, map[*Registry]bool{}) {
		return fmt.Errorf("namespace %q: %w", prefix, rpcerr.ErrCyclicNamespace)
	}

	if _, seen := r.children[prefix]; !seen {
		r.prefixes = append(r.prefixes, prefix)
	}
	r.children[prefix] = append(r.children[prefix], child)

	slog.Debug("Attaching namespace.", "prefix", prefix, "methods", len(child.methods))
	return nil
}

// reaches reports whether target is c or any registry in c's subtree.
func (c *Registry) reaches(target *Registry, visited map[*Registry]bool) bool {
	if c == target {
		return true
	}
	if visited[c] {
		return false
	}
	visited[c] = true
	for _, prefix := range c.prefixes {
		for _, child := range c.children[prefix] {
			if child.reaches(target, visited) {
				return true
			}
		}
	}
	return false
}

// Resolve routes a possibly-namespaced method name to its entry. Direct
// matches always win regardless of any prefix. Otherwise prefixes are
// tried in first-added order; within a prefix, children in registration
// order, recursing on the name with the prefix stripped. Resolution is a
// pure function of registry state.
func (r *Registry) Resolve(name string) (*Method, error) {
	if m, ok := r.methods[name]; ok {
		return m, nil
	}

	for _, prefix := range r.prefixes {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := name[len(prefix):]
		for _, child := range r.children[prefix] {
			if m, err := child.Resolve(rest); err == nil {
				return m, nil
			}
		}
	}

	return nil, fmt.Errorf("method %q: %w", name, rpcerr.ErrNotFound)
}

// Names returns the sorted direct method names, for startup logging and
// introspection.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllNames returns every reachable method name, children included, each
// joined with the prefix it is routable under. A child mounted under several
// prefixes contributes its names once per prefix.
func (r *Registry) AllNames() []string {
	names := r.collectNames("")
	sort.Strings(names)
	return names
}

func (r *Registry) collectNames(prefix string) []string {
	var names []string
	for name := range r.methods {
		names = append(names, prefix+name)
	}
	for _, p := range r.prefixes {
		for _, child := range r.children[p] {
			names = append(names, child.collectNames(prefix+p)...)
		}
	}
	return names
}
