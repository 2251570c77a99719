// Package ws carries RPC messages over WebSocket frames. Each inbound frame
// is one protocol message; the reply, when owed, is written back on the same
// connection. Correlation across concurrent calls belongs to the protocol
// layer (request IDs), so the client end serializes frame exchanges.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vk/relayrpc/internal/ctxlog"
	"github.com/vk/relayrpc/internal/transport"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server accepts WebSocket connections and feeds every frame to the
// handler. Connections are independent; one connection's failure does not
// affect the others.
type Server struct {
	addr string
	path string

	httpServer *http.Server
}

// NewServer creates a WebSocket transport server. path defaults to "/rpc".
func NewServer(addr, path string) *Server {
	if path == "" {
		path = "/rpc"
	}
	return &Server{addr: addr, path: path}
}

func (s *Server) Start(ctx context.Context, handler transport.Handler) error {
	logger := ctxlog.FromContext(ctx).With("transport", "ws", "addr", s.addr)

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("WebSocket upgrade failed.", "error", err)
			return
		}
		go s.serveConn(ctx, conn, handler)
	})

	s.httpServer = &http.Server{
		Addr:        s.addr,
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	logger.Info("WebSocket transport listening.")

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
		return fmt.Errorf("websocket transport: %w", err)
	}
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// serveConn reads frames until the peer disconnects. Replies, when owed,
// are written back in handling order.
func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn, handler transport.Handler) {
	logger := ctxlog.FromContext(ctx).With("remote", conn.RemoteAddr().String())
	defer conn.Close()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket connection dropped.", "error", err)
			}
			return
		}

		reply, err := handler(ctx, payload)
		if err != nil {
			logger.Error("WebSocket transport handler failed.", "error", err)
			continue
		}
		if reply == nil {
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(msgType, reply); err != nil {
			logger.Warn("Writing WebSocket reply failed.", "error", err)
			return
		}
	}
}

// Client dials a WebSocket RPC endpoint.
type Client struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient creates a WebSocket transport client for url, e.g.
// "ws://127.0.0.1:8546/rpc".
func NewClient(url string) *Client {
	return &Client{url: url}
}

func (c *Client) Open(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", c.url, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) Send(ctx context.Context, msg []byte, expectReply bool) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, fmt.Errorf("websocket transport client is not open")
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return nil, fmt.Errorf("writing rpc message: %w", err)
	}
	if !expectReply {
		return nil, nil
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(deadline)
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}
	_, reply, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading rpc reply: %w", err)
	}
	return reply, nil
}
