package app

import (
	"context"

	"github.com/vk/relayrpc/internal/registry"
)

// registerSystemMethods adds the built-in introspection methods. They are
// registered directly on the root so they resolve ahead of any namespace
// that might also claim the "system." prefix.
func registerSystemMethods(reg *registry.Registry) error {
	return reg.AddMethod("system.list_methods", func(ctx context.Context, call *registry.Call) (any, error) {
		return reg.AllNames(), nil
	})
}
