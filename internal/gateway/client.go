package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/openpawz/pawgo/pkg/protocol"
)

// Client is one connected WebSocket peer. It owns the read pump (in Run)
// and serializes writes behind writeMu, since gorilla/websocket connections
// aren't safe for concurrent writers.
type Client struct {
	id     string
	conn   *websocket.Conn
	server *Server

	writeMu sync.Mutex
	authed  bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps an upgraded WebSocket connection.
func NewClient(conn *websocket.Conn, server *Server) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		server: server,
		done:   make(chan struct{}),
	}
}

// Run reads frames until the connection closes or ctx is done, dispatching
// each request frame through the server's method router.
func (c *Client) Run(ctx context.Context) {
	c.conn.SetReadLimit(1 << 20) // 1 MiB, plenty for chat messages + small media refs

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame protocol.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.writeFrame(protocol.NewErrorResponse("", protocol.ErrInvalidRequest("malformed frame")))
			continue
		}
		if frame.Type != protocol.FrameTypeRequest {
			continue
		}

		if !c.authed && frame.Method != protocol.MethodConnect {
			c.writeFrame(protocol.NewErrorResponse(frame.ID, protocol.ErrInvalidRequest("not authenticated")))
			continue
		}

		resp := c.server.router.Dispatch(ctx, c, &frame)
		if resp != nil {
			c.writeFrame(resp)
		}
	}
}

// SendEvent pushes a server-initiated event frame to the client.
func (c *Client) SendEvent(evt protocol.EventFrame) {
	c.writeFrame(&evt)
}

func (c *Client) writeFrame(f *protocol.Frame) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteJSON(f); err != nil {
		slog.Debug("gateway: client write failed", "client", c.id, "error", err)
	}
}

// Close tears down the underlying connection. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
