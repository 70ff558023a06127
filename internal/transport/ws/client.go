package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"wordchain/internal/app"
	"wordchain/internal/domain"
	"wordchain/internal/hub"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256

	// Upper bound for one submission including the dictionary lookup
	submitTimeout = 5 * time.Second
)

// Client is one player's connection to a room. It is the hub sink for the
// player's subscription.
type Client struct {
	conn     *websocket.Conn
	dir      *app.Directory
	session  *app.RoomSession
	playerID domain.PlayerID
	sub      *hub.Subscription
	limiter  *rate.Limiter
	send     chan []byte
	done     chan struct{}
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, dir *app.Directory, session *app.RoomSession, playerID domain.PlayerID, limiter *rate.Limiter, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		dir:      dir,
		session:  session,
		playerID: playerID,
		limiter:  limiter,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		logger:   logger.With("roomID", session.ID(), "playerID", playerID),
	}
}

// GetPlayerID returns the player ID for this client
func (c *Client) GetPlayerID() domain.PlayerID {
	return c.playerID
}

// Deliver implements hub.Sink. A full send buffer fails the delivery, which
// ends the subscription.
func (c *Client) Deliver(d hub.Delivery) error {
	data, err := json.Marshal(EventMessage(d))
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

// Send queues a message that originates at this connection
func (c *Client) Send(msg *ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := c.enqueue(data); err != nil {
		c.logger.Warn("message dropped", "type", msg.Type, "error", err)
		return err
	}
	return nil
}

func (c *Client) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return hub.ErrSinkClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return hub.ErrSlowConsumer
	}
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's pumps for sub and blocks until the connection ends
func (c *Client) Run(sub *hub.Subscription) {
	c.sub = sub
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.session.Unsubscribe(c.sub)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			if err := c.write(message); err != nil {
				return
			}
		case <-c.sub.Done():
			c.finish()
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// write sends message together with everything already queued behind it
func (c *Client) write(message []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	w.Write(message)

	n := len(c.send)
	for i := 0; i < n; i++ {
		w.Write([]byte{'\n'})
		w.Write(<-c.send)
	}

	return w.Close()
}

// finish flushes pending messages after the subscription ended and closes
// the connection with a reason the peer can act on.
func (c *Client) finish() {
	if n := len(c.send); n > 0 {
		if err := c.write(<-c.send); err != nil {
			return
		}
	}

	reason := c.sub.Err()
	code := websocket.CloseNormalClosure
	switch {
	case c.sub.Superseded():
		if data, err := json.Marshal(NewServerMessage(MsgSuperseded, nil)); err == nil {
			if err := c.write(data); err != nil {
				return
			}
		}
		code = websocket.ClosePolicyViolation
	case errors.Is(reason, hub.ErrSlowConsumer):
		code = websocket.CloseTryAgainLater
	case errors.Is(reason, hub.ErrHubClosed):
		code = websocket.CloseGoingAway
	}
	c.logger.Debug("subscription ended", "error", reason)

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, closeText(reason)))
}

func closeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// handleMessage processes an incoming message from the client
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	switch msg.Type {
	case MsgSubmit:
		c.handleSubmit(msg.Payload)
	case MsgLeave:
		c.handleLeave()
	case MsgPing:
		c.sendPong()
	default:
		c.sendError(ErrCodeInvalidMessage, "Unknown message type")
	}
}

// handleSubmit handles a submit message
func (c *Client) handleSubmit(payload json.RawMessage) {
	if !c.limiter.Allow() {
		c.sendError(ErrCodeRateLimited, "Too many submissions")
		return
	}

	var p SubmitPayload
	if len(payload) == 0 || json.Unmarshal(payload, &p) != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}
	if p.Word == "" {
		c.sendError(ErrCodeInvalidMessage, "Word is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	// accepted words reach every subscriber, this one included, through the hub
	_, err := c.session.SubmitWord(ctx, c.playerID, p.Word, p.Time)
	if err == nil {
		return
	}
	if rej, ok := domain.AsRejection(err); ok {
		c.Send(NewServerMessage(MsgError, &ErrorPayload{
			Code:    ErrCodeRejected,
			Message: rej.Error(),
			Reason:  rej.Reason,
			Word:    rej.Text,
		}))
		return
	}
	c.logger.Error("submit failed", "error", err)
	c.sendError(ErrCodeInternalError, "Internal error")
}

// handleLeave removes the player from the room. Leaving ends the
// subscription, which closes the connection once queued events are flushed.
func (c *Client) handleLeave() {
	err := c.dir.Leave(c.session.ID(), c.playerID)
	switch {
	case errors.Is(err, domain.ErrPlayerNotFound):
		c.sendError(ErrCodeNotMember, "Not a member of this room")
		return
	case errors.Is(err, domain.ErrRoomNotFound):
		c.sendError(ErrCodeRoomNotFound, "Room not found")
		return
	case err != nil:
		c.sendError(ErrCodeInternalError, err.Error())
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	c.Send(NewServerMessage(MsgError, &ErrorPayload{
		Code:    code,
		Message: message,
	}))
}

// sendPong sends a pong message in response to ping
func (c *Client) sendPong() {
	c.Send(NewServerMessage(MsgPong, nil))
}
