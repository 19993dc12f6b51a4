package hertzws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/websocket"

	"xrtour/internal/tour"
)

// Handler is the hertz twin of internal/ws: it upgrades viewer and host-page
// sockets for sessions served through the hertz surface.
type Handler struct {
	manager  *tour.Manager
	upgrader websocket.HertzUpgrader
}

func NewHandler(manager *tour.Manager) *Handler {
	return &Handler{
		manager: manager,
		upgrader: websocket.HertzUpgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(ctx *app.RequestContext) bool {
				return true
			},
		},
	}
}

type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *wsTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Handler) HandleWebSocket(c context.Context, ctx *app.RequestContext) {
	sessionID := ctx.Param("sessionId")
	token := ctx.Query("token")
	role := ctx.Query("role")
	if role == "" {
		role = "viewer"
	}

	if token == "" {
		log.Printf("WebSocket: missing token for session %s", sessionID)
		ctx.String(401, "missing token")
		return
	}

	session, err := h.manager.Lookup(sessionID, token)
	if err != nil {
		log.Printf("WebSocket: lookup failed for session %s: %v", sessionID, err)
		ctx.String(401, err.Error())
		return
	}

	err = h.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		transport := &wsTransport{conn: conn}
		switch role {
		case "viewer":
			session.BindViewer(transport)
			h.viewerReadLoop(session, conn)
			session.ReleaseViewer(transport)
		case "ui":
			session.BindMedia(transport)
			h.mediaReadLoop(session, conn)
			session.ReleaseMedia(transport)
		default:
			log.Printf("WebSocket: unknown role %q for session %s", role, sessionID)
		}
		conn.Close()
	})
	if err != nil {
		log.Printf("WebSocket: upgrade failed for session %s: %v", sessionID, err)
	}
}

func (h *Handler) viewerReadLoop(session *tour.Session, conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket: read error: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		session.DispatchViewer(data)
	}
}

func (h *Handler) mediaReadLoop(session *tour.Session, conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var event tour.MediaEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("WebSocket: unmarshal media event error: %v", err)
			continue
		}
		session.HandleMediaEvent(event)
	}
}
