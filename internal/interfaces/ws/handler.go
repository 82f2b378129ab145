package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/interfaces/http/dto"
	"github.com/thirdhand/marketplace/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// ReadyPayload is the first frame on every socket
type ReadyPayload struct {
	Room string `json:"room"`
}

// ServeWS upgrades an authenticated request to a websocket.
// Browsers cannot set headers on the upgrade, so the access token is read
// from the token query parameter first.
func (h *Hub) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		h.reject(c, "Authentication required")
		return
	}

	claims, err := h.validator.ValidateAccessToken(c.Request.Context(), token)
	if err != nil {
		h.reject(c, "Invalid or expired token")
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		h.reject(c, "Invalid or expired token")
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		// Accept has already written the failure response
		h.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxInboundFrame)

	// The request context ends with the hijacked handler, so the socket gets its own
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cl := newClient(h, conn, userID, cancel)
	h.register(cl)
	defer h.unregister(cl)

	cl.enqueue(Frame{Type: FrameReady, Data: ReadyPayload{Room: Room(userID)}})

	go cl.readLoop(ctx)
	cl.writeLoop(ctx)

	_ = conn.Close(websocket.StatusNormalClosure, "closed")
}

func (h *Hub) reject(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, message, c.GetString(middleware.RequestIDKey)))
}
