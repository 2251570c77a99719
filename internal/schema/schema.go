// Package schema declares parameter contracts for RPC handlers and binds
// incoming arguments against them.
//
// A handler declares its parameters once, at registration time, as an
// ordered list of Param values. Binding is a pure function from (positional
// args, keyword args) to a complete, ordered argument list; it performs the
// arity, keyword-name, and optional type-constraint checks strictly before
// the handler is invoked, so a handler never observes a malformed call.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/relayrpc/internal/protocol"
)

// Param describes one declared parameter.
type Param struct {
	// Name is the keyword callers may use to pass this parameter.
	Name string

	// Type optionally constrains the argument value. The zero value (and
	// cty.DynamicPseudoType) accept anything.
	Type cty.Type

	// Required marks a parameter that must be supplied by the caller.
	Required bool

	// Default fills an optional parameter the caller omitted.
	Default any
}

// Params is an ordered, immutable parameter list.
type Params struct {
	list  []Param
	index map[string]int
}

// NewParams builds a parameter list. Duplicate names and optional
// parameters declared before required ones are rejected; both are
// programmer errors in the method table.
func NewParams(params ...Param) (*Params, error) {
	index := make(map[string]int, len(params))
	seenOptional := false
	for i, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("parameter %d has no name", i)
		}
		if _, dup := index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate parameter name %q", p.Name)
		}
		if !p.Required && !seenOptional {
			seenOptional = true
		}
		if p.Required && seenOptional {
			return nil, fmt.Errorf("required parameter %q declared after an optional one", p.Name)
		}
		index[p.Name] = i
	}
	return &Params{list: params, index: index}, nil
}

// MustParams is NewParams for compiled-in method tables.
func MustParams(params ...Param) *Params {
	p, err := NewParams(params...)
	if err != nil {
		panic(err)
	}
	return p
}

// None is an empty parameter list for zero-argument methods.
func None() *Params {
	return &Params{index: map[string]int{}}
}

// Len returns the number of declared parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.list)
}

// Bound is the result of a successful bind: every declared parameter has a
// value, in declaration order.
type Bound struct {
	params *Params
	values []any
}

// Pos returns the value of the i-th declared parameter.
func (b *Bound) Pos(i int) any {
	return b.values[i]
}

// Name returns the value bound to the named parameter.
func (b *Bound) Name(name string) (any, bool) {
	i, ok := b.params.index[name]
	if !ok {
		return nil, false
	}
	return b.values[i], true
}

// Values returns all bound values in declaration order. The slice is a copy.
func (b *Bound) Values() []any {
	out := make([]any, len(b.values))
	copy(out, b.values)
	return out
}

// Bind validates args and kwargs against the declared parameters and
// returns the complete ordered argument list. A nil Params binds only an
// empty call. Binding has no side effects; error messages describe the
// caller's input and are safe to surface.
func (p *Params) Bind(args []any, kwargs *protocol.Kwargs) (*Bound, error) {
	if p == nil {
		p = None()
	}
	if len(args) > len(p.list) {
		return nil, fmt.Errorf("too many positional arguments: got %d, method accepts %d", len(args), len(p.list))
	}

	values := make([]any, len(p.list))
	assigned := make([]bool, len(p.list))
	for i, v := range args {
		values[i] = v
		assigned[i] = true
	}

	for _, name := range kwargs.Keys() {
		i, ok := p.index[name]
		if !ok {
			return nil, fmt.Errorf("unexpected keyword argument %q", name)
		}
		if assigned[i] {
			return nil, fmt.Errorf("argument %q given both positionally and by keyword", name)
		}
		v, _ := kwargs.Get(name)
		values[i] = v
		assigned[i] = true
	}

	for i, param := range p.list {
		if assigned[i] {
			if err := checkType(param, values[i]); err != nil {
				return nil, err
			}
			continue
		}
		if param.Required {
			return nil, fmt.Errorf("missing required argument %q", param.Name)
		}
		values[i] = param.Default
	}

	return &Bound{params: p, values: values}, nil
}

// checkType enforces the optional cty type constraint on a supplied value.
func checkType(param Param, value any) error {
	if param.Type == cty.NilType || param.Type == cty.DynamicPseudoType || value == nil {
		return nil
	}
	if _, err := gocty.ToCtyValue(normalize(value), param.Type); err != nil {
		return fmt.Errorf("argument %q: %s", param.Name, err)
	}
	return nil
}

// normalize widens decoder-specific scalar types so the cty conversion sees
// plain Go numbers. json.Decoder with UseNumber yields json.Number.
func normalize(v any) any {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return v
}
