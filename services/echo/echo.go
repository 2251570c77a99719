// Package echo is a small built-in service, useful for smoke-testing a
// deployment end to end before any real services are mounted.
package echo

import (
	"context"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/relayrpc/internal/registry"
	"github.com/vk/relayrpc/internal/schema"
)

// Service exposes echo and string helpers.
type Service struct{}

// Methods declares the service's method table.
func (Service) Methods() []registry.MethodDef {
	return []registry.MethodDef{
		{
			Name:    "echo",
			Handler: onEcho,
			Params:  schema.MustParams(schema.Param{Name: "x", Required: true}),
		},
		{
			Name:    "reverse",
			Handler: onReverse,
			Params:  schema.MustParams(schema.Param{Name: "s", Type: cty.String, Required: true}),
		},
		{
			Name:    "repeat",
			Handler: onRepeat,
			Params: schema.MustParams(
				schema.Param{Name: "s", Type: cty.String, Required: true},
				schema.Param{Name: "count", Type: cty.Number, Default: 2},
			),
		},
	}
}

func onEcho(ctx context.Context, call *registry.Call) (any, error) {
	return call.Arg(0), nil
}

func onReverse(ctx context.Context, call *registry.Call) (any, error) {
	s := fmt.Sprint(call.Arg(0))
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

func onRepeat(ctx context.Context, call *registry.Call) (any, error) {
	s := fmt.Sprint(call.Arg(0))
	count, err := asInt(call.Arg(1))
	if err != nil {
		return nil, err
	}
	if count < 0 || count > 1000 {
		return nil, fmt.Errorf("count %d out of range", count)
	}
	return strings.Repeat(s, count), nil
}

// asInt widens the number representations codecs produce.
func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		return int(i), err
	default:
		return 0, fmt.Errorf("value %v is not an integer", v)
	}
}
