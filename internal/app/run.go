package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/relayrpc/internal/codec"
	"github.com/vk/relayrpc/internal/config"
	"github.com/vk/relayrpc/internal/ctxlog"
	"github.com/vk/relayrpc/internal/protocol/jsonrpc"
	"github.com/vk/relayrpc/internal/server"
	"github.com/vk/relayrpc/internal/transport"
	"github.com/vk/relayrpc/internal/transport/httpx"
	"github.com/vk/relayrpc/internal/transport/ws"
)

// Run serves every configured listener until ctx is cancelled or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	servers := make([]*server.Server, 0, len(a.config.Listeners))
	for _, l := range a.config.Listeners {
		srv, err := a.buildServer(l)
		if err != nil {
			return err
		}
		servers = append(servers, srv)
	}

	a.logger.Info("🚀 Serving.",
		"listeners", len(servers),
		"methods", a.registry.AllNames(),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(servers))
	for i, srv := range servers {
		wg.Add(1)
		go func(l config.Listener, srv *server.Server) {
			defer wg.Done()
			// Cancellation is the normal way down, not a failure.
			if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("listener %s %s: %w", l.Kind, l.Addr, err)
			}
		}(a.config.Listeners[i], srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		a.logger.Error("Listener failed, shutting down.", "error", runErr)
		cancel()
	}
	wg.Wait()

	a.logger.Debug("App.Run method finished.")
	return runErr
}

// buildServer assembles the protocol, codec, and transport stack for one
// listen block. The config layer has already validated kind and codec.
func (a *App) buildServer(l config.Listener) (*server.Server, error) {
	var c codec.Codec
	switch l.Codec {
	case "cbor":
		c = codec.MustCBOR()
	default:
		c = codec.JSON{}
	}

	var tr transport.Server
	switch l.Kind {
	case "http":
		tr = httpx.NewServer(l.Addr, l.Path, c.ContentType())
	case "ws":
		tr = ws.NewServer(l.Addr, l.Path)
	default:
		return nil, fmt.Errorf("listen %q: unknown transport kind", l.Kind)
	}

	return server.New(jsonrpc.New(), c, a.dispatcher, tr,
		server.WithWorkers(a.config.Workers),
	), nil
}
