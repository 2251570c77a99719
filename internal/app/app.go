package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/relayrpc/internal/config"
	"github.com/vk/relayrpc/internal/dispatch"
	"github.com/vk/relayrpc/internal/registry"
)

// Mount pairs a service with the namespace prefix it is exposed under. An
// empty prefix exposes the service's methods at the top level.
type Mount struct {
	Prefix  string
	Service registry.Service
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *config.Config
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher

	httpServer *http.Server // healthcheck
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and a registry
// populated from the given mounts (coreMounts when none are given).
func NewApp(outW io.Writer, cfg *config.Config, mounts ...Mount) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(mounts) == 0 {
		mounts = coreMounts
	}
	for _, m := range mounts {
		if err := reg.RegisterService(m.Service, m.Prefix); err != nil {
			// A broken mount table is a programmer error, so we panic.
			panic(fmt.Errorf("mounting service at %q: %w", m.Prefix, err))
		}
	}
	logger.Debug("All services mounted.", "count", len(mounts))

	if err := registerSystemMethods(reg); err != nil {
		panic(fmt.Errorf("registering system methods: %w", err))
	}

	return &App{
		outW:       outW,
		logger:     logger,
		config:     cfg,
		registry:   reg,
		dispatcher: dispatch.New(reg),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Dispatcher returns the application's dispatcher. This is primarily for testing.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}
