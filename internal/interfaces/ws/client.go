package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// inbound is a frame sent by the browser
type inbound struct {
	Type string          `json:"type"`
	To   string          `json:"to,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// TypingPayload is relayed to the peer of a conversation
type TypingPayload struct {
	From     string `json:"from"`
	IsTyping bool   `json:"isTyping"`
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID
	send   chan Frame

	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, cancel context.CancelFunc) *client {
	return &client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan Frame, hub.cfg.SendBuffer),
		cancel: cancel,
	}
}

// enqueue never blocks. It returns false when the send buffer is full.
func (c *client) enqueue(f Frame) bool {
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(c.cancel)
}

func (c *client) writeLoop(ctx context.Context) {
	ping := time.NewTicker(c.hub.cfg.PingInterval)
	defer ping.Stop()
	touch := time.NewTicker(c.hub.cfg.PresenceTouch)
	defer touch.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.send:
			if err := c.write(ctx, f); err != nil {
				c.hub.logger.Debug("Websocket write failed", zap.Error(err))
				c.close()
				return
			}
		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, c.hub.cfg.WriteTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.close()
				return
			}
		case <-touch.C:
			c.hub.setPresence(c.userID, true)
		}
	}
}

func (c *client) write(ctx context.Context, f Frame) error {
	writeCtx, cancel := context.WithTimeout(ctx, c.hub.cfg.WriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, c.conn, f)
}

func (c *client) readLoop(ctx context.Context) {
	defer c.close()
	for {
		var msg inbound
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				c.hub.logger.Debug("Websocket read ended", zap.Error(err))
			}
			return
		}
		c.handleInbound(ctx, msg)
	}
}

func (c *client) handleInbound(ctx context.Context, msg inbound) {
	switch msg.Type {
	case FramePing:
		c.enqueue(Frame{Type: FramePong})
	case FrameTyping:
		to, err := uuid.Parse(msg.To)
		if err != nil {
			c.enqueue(Frame{Type: FrameError, Data: "typing needs a valid recipient"})
			return
		}
		var data struct {
			IsTyping *bool `json:"isTyping"`
		}
		if len(msg.Data) > 0 {
			_ = json.Unmarshal(msg.Data, &data)
		}
		typing := true
		if data.IsTyping != nil {
			typing = *data.IsTyping
		}
		if !c.hub.allowRelay(ctx, c.userID, to) {
			c.enqueue(Frame{Type: FrameError, Data: "you cannot message this user"})
			return
		}
		c.hub.SendToUser(to, FrameTyping, TypingPayload{From: c.userID.String(), IsTyping: typing})
	default:
		c.enqueue(Frame{Type: FrameError, Data: "unsupported frame " + msg.Type})
	}
}
