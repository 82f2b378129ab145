// Package ws pushes realtime frames to connected users over websockets.
// Every socket joins the room of its user, so a frame sent to a user reaches
// all of their open tabs.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// Frame types that are not owned by an application service
const (
	FrameReady  = "ready"
	FramePing   = "ping"
	FramePong   = "pong"
	FrameTyping = "typing"
	FrameError  = "error"
)

const (
	defaultPingInterval  = 25 * time.Second
	defaultWriteTimeout  = 10 * time.Second
	defaultSendBuffer    = 32
	defaultPresenceTouch = time.Minute
	presenceTimeout      = 5 * time.Second

	// maxInboundFrame bounds client frames; they only carry typing and ping
	maxInboundFrame = 4 << 10
)

// Frame is the JSON envelope of every websocket message
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// TokenValidator authenticates the access token passed on connect
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*auth.Claims, error)
}

// PresenceRecorder stores whether a user has an open socket
type PresenceRecorder interface {
	SetPresence(ctx context.Context, id uuid.UUID, online bool) error
}

// ConversationGuard decides whether one user may reach another
type ConversationGuard interface {
	CanMessage(ctx context.Context, senderID, receiverID uuid.UUID) error
}

// Config tunes the hub. Zero values take the defaults.
type Config struct {
	// OriginPatterns are the cross origin hosts allowed to connect
	OriginPatterns []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	// PresenceTouch is how often a live socket refreshes last seen
	PresenceTouch time.Duration
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
	if c.PresenceTouch <= 0 {
		c.PresenceTouch = defaultPresenceTouch
	}
	return c
}

// Hub tracks the open sockets per user room
type Hub struct {
	validator TokenValidator
	presence  PresenceRecorder
	guard     ConversationGuard
	cfg       Config
	logger    *zap.Logger

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

// NewHub creates a new Hub. presence may be nil.
func NewHub(validator TokenValidator, presence PresenceRecorder, cfg Config, logger *zap.Logger) *Hub {
	return &Hub{
		validator: validator,
		presence:  presence,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		rooms:     make(map[string]map[*client]struct{}),
	}
}

// SetConversationGuard sets the check applied to typing frames. Without a
// guard typing frames are not relayed.
func (h *Hub) SetConversationGuard(guard ConversationGuard) {
	h.guard = guard
}

// allowRelay reports whether from may send realtime frames to to
func (h *Hub) allowRelay(ctx context.Context, from, to uuid.UUID) bool {
	if h.guard == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
	defer cancel()
	if err := h.guard.CanMessage(ctx, from, to); err != nil {
		h.logger.Debug("Typing frame refused",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err))
		return false
	}
	return true
}

// Room returns the room name of a user
func Room(userID uuid.UUID) string {
	return "user-" + userID.String()
}

// SendToUser queues a frame on every socket of the user. Sockets that
// cannot keep up are disconnected.
func (h *Hub) SendToUser(userID uuid.UUID, frameType string, payload any) {
	frame := Frame{Type: frameType, Data: payload}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[Room(userID)]))
	for c := range h.rooms[Room(userID)] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(frame) {
			h.logger.Warn("Dropping slow websocket client",
				zap.String("user_id", userID.String()),
				zap.String("frame", frameType))
			c.close()
		}
	}
}

// IsOnline reports whether the user has at least one open socket
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[Room(userID)]) > 0
}

// Connections returns the number of open sockets
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.rooms {
		n += len(clients)
	}
	return n
}

func (h *Hub) register(c *client) {
	room := Room(c.userID)
	h.mu.Lock()
	clients, ok := h.rooms[room]
	if !ok {
		clients = make(map[*client]struct{})
		h.rooms[room] = clients
	}
	clients[c] = struct{}{}
	first := len(clients) == 1
	h.mu.Unlock()

	h.logger.Debug("Websocket joined room", zap.String("room", room))
	if first {
		h.setPresence(c.userID, true)
	}
}

func (h *Hub) unregister(c *client) {
	room := Room(c.userID)
	h.mu.Lock()
	clients := h.rooms[room]
	delete(clients, c)
	last := len(clients) == 0
	if last {
		delete(h.rooms, room)
	}
	h.mu.Unlock()

	h.logger.Debug("Websocket left room", zap.String("room", room))
	if last {
		h.setPresence(c.userID, false)
	}
}

func (h *Hub) setPresence(userID uuid.UUID, online bool) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := h.presence.SetPresence(ctx, userID, online); err != nil {
		h.logger.Warn("Failed to record presence",
			zap.String("user_id", userID.String()),
			zap.Bool("online", online),
			zap.Error(err))
	}
}
