// Package httpx carries RPC messages over HTTP POST: one request per call,
// the reply in the response body. Notifications are answered with 204 No
// Content.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"resty.dev/v3"

	"github.com/vk/relayrpc/internal/ctxlog"
	"github.com/vk/relayrpc/internal/transport"
)

// Server serves RPC messages on a single POST endpoint.
type Server struct {
	addr        string
	path        string
	contentType string

	httpServer *http.Server
}

// NewServer creates an HTTP transport server. path defaults to "/rpc".
func NewServer(addr, path, contentType string) *Server {
	if path == "" {
		path = "/rpc"
	}
	return &Server{addr: addr, path: path, contentType: contentType}
}

// Start listens on the configured address until ctx is cancelled or Stop is
// called.
func (s *Server) Start(ctx context.Context, handler transport.Handler) error {
	logger := ctxlog.FromContext(ctx).With("transport", "http", "addr", s.addr)

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+s.path, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "reading request body", http.StatusBadRequest)
			return
		}

		reply, err := handler(r.Context(), body)
		if err != nil {
			logger.Error("HTTP transport handler failed.", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if reply == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", s.contentType)
		if _, err := w.Write(reply); err != nil {
			logger.Error("Writing HTTP reply failed.", "error", err)
		}
	})

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	logger.Info("HTTP transport listening.")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http transport: %w", err)
	}
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Client sends RPC messages as HTTP POST bodies using resty.
type Client struct {
	url         string
	contentType string
	rc          *resty.Client
}

// NewClient creates an HTTP transport client pointed at the server's RPC
// endpoint, e.g. "http://127.0.0.1:8545/rpc".
func NewClient(url, contentType string) *Client {
	return &Client{url: url, contentType: contentType}
}

func (c *Client) Open(ctx context.Context) error {
	c.rc = resty.New()
	return nil
}

func (c *Client) Close(ctx context.Context) error {
	if c.rc == nil {
		return nil
	}
	err := c.rc.Close()
	c.rc = nil
	return err
}

func (c *Client) Send(ctx context.Context, msg []byte, expectReply bool) ([]byte, error) {
	if c.rc == nil {
		return nil, fmt.Errorf("http transport client is not open")
	}

	res, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", c.contentType).
		SetBody(msg).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("posting rpc message: %w", err)
	}

	switch {
	case res.StatusCode() == http.StatusNoContent:
		return nil, nil
	case res.IsError():
		return nil, fmt.Errorf("rpc endpoint returned status %d", res.StatusCode())
	}

	if !expectReply {
		return nil, nil
	}
	return res.Bytes(), nil
}
