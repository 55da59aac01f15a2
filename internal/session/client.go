package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
	sendBuffer = 256
)

// Conn is the part of a websocket connection a Client uses.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
	SetReadLimit(n int64)
}

// Client is one editor tab attached to a project room. Every dispatch
// result it receives builds on the previous one, so a client that cannot
// keep up is disconnected rather than silently skipped; it resyncs from
// the welcome message when it reconnects.
type Client struct {
	hub    *Hub
	conn   Conn
	outbox chan []byte

	mu     sync.Mutex
	closed bool
	lagged bool

	UserID      string
	DisplayName string
	ProjectID   string
	ClientID    string
}

func NewClient(hub *Hub, conn Conn, userID, displayName, projectID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		outbox:      make(chan []byte, sendBuffer),
		UserID:      userID,
		DisplayName: displayName,
		ProjectID:   projectID,
		ClientID:    clientID,
	}
}

var errUndecodable = errors.New("invalid message")

// readMessage blocks for the next frame and stamps it with the client's
// identity. Identity fields sent by the browser are never trusted.
func (c *Client) readMessage(ctx context.Context) (*Message, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("invalid message", "error", err, "user", c.UserID)
		return nil, errUndecodable
	}
	msg.UserID = c.UserID
	msg.ClientID = c.ClientID
	msg.ProjectID = c.ProjectID
	return &msg, nil
}

// ReadPump feeds incoming messages to the hub until the connection or ctx
// ends, then unregisters the client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		msg, err := c.readMessage(ctx)
		switch {
		case errors.Is(err, errUndecodable):
			c.SendError(err.Error())
			continue
		case err != nil:
			if !closedByPeer(err) {
				slog.Debug("read error", "error", err, "user", c.UserID)
			}
			return
		}
		c.hub.handleMessage(c, msg)
	}
}

func closedByPeer(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}

// WritePump drains the outbox and keeps the connection alive with pings.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.outbox:
			if !ok {
				c.closeConn()
				return
			}
			if err := c.write(ctx, frame); err != nil {
				slog.Debug("write error", "error", err, "user", c.UserID)
				c.closeConn()
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.closeConn()
				return
			}

		case <-ctx.Done():
			c.closeConn()
			return
		}
	}
}

func (c *Client) write(ctx context.Context, frame []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, frame)
}

func (c *Client) closeConn() {
	c.mu.Lock()
	lagged := c.lagged
	c.mu.Unlock()
	if lagged {
		c.conn.Close(websocket.StatusPolicyViolation, "client fell behind")
		return
	}
	c.conn.Close(websocket.StatusNormalClosure, "")
}

// Send queues msg. When the outbox is full the client is marked as lagging
// and its outbox is closed, which ends WritePump and the connection.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.outbox <- data:
	default:
		slog.Warn("client fell behind, disconnecting", "user", c.UserID, "client", c.ClientID, "type", msg.Type)
		c.lagged = true
		c.closed = true
		close(c.outbox)
	}
}

// closeSend ends WritePump once the queued messages are written.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.outbox)
	}
}

func (c *Client) SendError(message string) {
	msg, err := newMessage(TypeError, ErrorPayload{Message: message})
	if err != nil {
		slog.Error("marshal error message", "error", err)
		return
	}
	c.Send(msg)
}
