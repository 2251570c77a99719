// Package clock exposes time helpers, mostly as a demonstration of a
// handler that suspends: sleep_ms awaits without blocking sibling requests.
package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/relayrpc/internal/registry"
	"github.com/vk/relayrpc/internal/schema"
)

// Service exposes clock methods.
type Service struct{}

// Methods declares the service's method table.
func (Service) Methods() []registry.MethodDef {
	return []registry.MethodDef{
		{
			Name:    "now",
			Handler: onNow,
			Params: schema.MustParams(
				schema.Param{Name: "layout", Type: cty.String, Default: time.RFC3339},
			),
		},
		{
			Name:    "sleep_ms",
			Handler: onSleep,
			Params: schema.MustParams(
				schema.Param{Name: "ms", Type: cty.Number, Required: true},
			),
		},
	}
}

func onNow(ctx context.Context, call *registry.Call) (any, error) {
	layout := fmt.Sprint(call.Arg(0))
	return time.Now().UTC().Format(layout), nil
}

func onSleep(ctx context.Context, call *registry.Call) (any, error) {
	ms, err := asInt64(call.Arg(0))
	if err != nil {
		return nil, err
	}
	if ms < 0 || ms > 60_000 {
		return nil, fmt.Errorf("ms %d out of range", ms)
	}

	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return "ok", nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case interface{ Int64() (int64, error) }:
		return n.Int64()
	default:
		return 0, fmt.Errorf("value %v is not an integer", v)
	}
}
