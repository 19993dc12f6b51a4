package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"xrtour/internal/tour"
)

// Handler upgrades viewer and host-page sockets. The viewer socket carries
// the envelope protocol; the ui socket carries media commands and events.
type Handler struct {
	manager  *tour.Manager
	upgrader websocket.Upgrader
}

func NewHandler(manager *tour.Manager) *Handler {
	return &Handler{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// wsTransport serializes writes; gorilla connections allow one writer at a
// time.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *wsTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID, err := extractSessionID(r.URL.Path)
	if err != nil {
		log.Printf("WebSocket: invalid session path: %s", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("invalid session path"))
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		log.Printf("WebSocket: missing token for session %s", sessionID)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("missing token"))
		return
	}

	role := r.URL.Query().Get("role")
	if role == "" {
		role = "viewer"
	}

	session, err := h.manager.Lookup(sessionID, token)
	if err != nil {
		log.Printf("WebSocket: lookup failed for session %s: %v", sessionID, err)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(err.Error()))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket: upgrade failed for session %s: %v", sessionID, err)
		return
	}

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
}

// viewerReadLoop feeds raw frames into the session's channel; filtering by
// channel tag happens there, so unrelated traffic is dropped silently.
func (h *Handler) viewerReadLoop(session *tour.Session, conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
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
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var event tour.MediaEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		session.HandleMediaEvent(event)
	}
}

func extractSessionID(path string) (string, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "ws" || parts[1] != "sessions" {
		return "", errors.New("invalid path")
	}
	return parts[2], nil
}
