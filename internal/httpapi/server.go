package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"xrtour/internal/protocol"
	"xrtour/internal/tour"
	"xrtour/internal/ws"
)

type Server struct {
	manager *tour.Manager
	ws      *ws.Handler
	router  *echo.Echo
}

type createSessionRequest struct {
	TourID   string `json:"tourId"`
	Origin   string `json:"origin"`
	AutoPlay bool   `json:"autoPlay"`
}

type controlRequest struct {
	Token       string                          `json:"token"`
	Action      string                          `json:"action"`
	Seconds     float64                         `json:"seconds,omitempty"`
	Delta       float64                         `json:"delta,omitempty"`
	Volume      float64                         `json:"volume,omitempty"`
	Muted       bool                            `json:"muted,omitempty"`
	Track       int                             `json:"track,omitempty"`
	Width       int                             `json:"width,omitempty"`
	Height      int                             `json:"height,omitempty"`
	Orientation *protocol.OrientationPermission `json:"orientation,omitempty"`
}

type recenterRequest struct {
	Token string `json:"token"`
}

type devConfigRequest struct {
	TourID string `json:"tourId"`
}

func NewServer(manager *tour.Manager) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	server := &Server{
		manager: manager,
		ws:      ws.NewHandler(manager),
		router:  e,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.POST("/api/sessions", server.handleCreateSession)
	e.GET("/api/sessions/:sessionId", server.handleGetSession)
	e.POST("/api/sessions/:sessionId/controls", server.handleControls)
	e.POST("/api/sessions/:sessionId/recenter", server.handleRecenter)
	e.GET("/api/dev/tours", server.handleListTours)
	e.PUT("/api/dev/config", server.handleSetDevConfig)
	e.GET("/ws/sessions/:sessionId", server.handleWebSocket)

	return server
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var payload createSessionRequest
	if err := c.Bind(&payload); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid_request", "invalid request body")
	}
	info, err := s.manager.CreateSession(tour.CreateOptions{
		TourID:   payload.TourID,
		Origin:   payload.Origin,
		AutoPlay: payload.AutoPlay,
	})
	if err != nil {
		if errors.Is(err, tour.ErrTourNotFound) {
			return respondError(c, http.StatusNotFound, "tour_not_found", err.Error())
		}
		return respondError(c, http.StatusInternalServerError, "create_failed", err.Error())
	}
	return c.JSON(http.StatusCreated, info)
}

func (s *Server) handleGetSession(c echo.Context) error {
	sessionID := c.Param("sessionId")
	state, err := s.manager.GetState(sessionID)
	if err != nil {
		if errors.Is(err, tour.ErrSessionNotFound) {
			return respondError(c, http.StatusNotFound, "session_not_found", err.Error())
		}
		return respondError(c, http.StatusInternalServerError, "state_fetch_failed", err.Error())
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) handleControls(c echo.Context) error {
	sessionID := c.Param("sessionId")
	var payload controlRequest
	if err := c.Bind(&payload); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid_request", "invalid request body")
	}
	session, err := s.manager.Lookup(sessionID, payload.Token)
	if err != nil {
		return lookupError(c, err)
	}

	controller := session.Controller()
	switch payload.Action {
	case "attach":
		err = session.AttachViewer()
	case "detach":
		session.DetachViewer()
	case "play":
		err = controller.Play()
	case "pause":
		err = controller.Pause()
	case "play-rejected":
		controller.PlayRejected()
	case "seek":
		err = controller.Seek(payload.Seconds)
	case "skip":
		err = controller.Skip(payload.Delta)
	case "volume":
		err = controller.SetVolume(payload.Volume, payload.Muted)
	case "track":
		err = session.SelectTrack(payload.Track)
	case "resize":
		err = controller.Resize(payload.Width, payload.Height)
	case "orientation":
		if payload.Orientation == nil {
			return respondError(c, http.StatusBadRequest, "invalid_request", "orientation payload is required")
		}
		session.SetOrientationPermission(*payload.Orientation)
	default:
		return respondError(c, http.StatusBadRequest, "unknown_action", "unsupported control action")
	}
	if err != nil {
		return respondError(c, http.StatusBadRequest, "control_failed", err.Error())
	}
	return c.JSON(http.StatusOK, session.State())
}

// handleRecenter backs the host page's global recenter hook: a single
// endpoint reachable from anywhere in the UI without threading a callback
// through every layer.
func (s *Server) handleRecenter(c echo.Context) error {
	sessionID := c.Param("sessionId")
	var payload recenterRequest
	if err := c.Bind(&payload); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid_request", "invalid request body")
	}
	session, err := s.manager.Lookup(sessionID, payload.Token)
	if err != nil {
		return lookupError(c, err)
	}
	if err := session.Controller().Recenter(); err != nil {
		return respondError(c, http.StatusInternalServerError, "recenter_failed", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListTours(c echo.Context) error {
	return c.JSON(http.StatusOK, s.manager.Registry().List())
}

func (s *Server) handleSetDevConfig(c echo.Context) error {
	var payload devConfigRequest
	if err := c.Bind(&payload); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid_request", "invalid request body")
	}
	if err := s.manager.Registry().SetActive(payload.TourID); err != nil {
		return respondError(c, http.StatusNotFound, "tour_not_found", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleWebSocket(c echo.Context) error {
	sessionID := c.Param("sessionId")
	// Set the sessionId in the URL path so the WebSocket handler can extract it
	c.Request().URL.Path = "/ws/sessions/" + sessionID
	// WebSocket handler takes full control of the connection
	// Return nil to prevent Echo from writing additional response
	s.ws.ServeHTTP(c.Response(), c.Request())
	return nil
}

func lookupError(c echo.Context, err error) error {
	if errors.Is(err, tour.ErrSessionNotFound) {
		return respondError(c, http.StatusNotFound, "session_not_found", err.Error())
	}
	if errors.Is(err, tour.ErrInvalidToken) {
		return respondError(c, http.StatusUnauthorized, "invalid_token", err.Error())
	}
	return respondError(c, http.StatusInternalServerError, "lookup_failed", err.Error())
}

func respondError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, map[string]interface{}{
		"kind": "ERROR",
		"data": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
