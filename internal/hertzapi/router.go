package hertzapi

import (
	"context"
	"errors"

	"github.com/RanFeng/ilog"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"xrtour/internal/hertzws"
	"xrtour/internal/protocol"
	"xrtour/internal/tour"
)

// NewRouter registers the hertz routes for the tour session API and the
// viewer/ui websocket endpoint.
func NewRouter(h *server.Hertz, manager *tour.Manager) *server.Hertz {
	wsHandler := hertzws.NewHandler(manager)

	h.Use(recoveryMiddleware())
	h.Use(loggerMiddleware())

	h.GET("/healthz", func(c context.Context, ctx *app.RequestContext) {
		ctx.String(consts.StatusOK, "ok")
	})

	api := h.Group("/api")
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("/create", handleCreateSession(manager))
			sessions.GET("/:sessionId", handleGetSession(manager))
			sessions.POST("/:sessionId/controls", handleControls(manager))
			sessions.POST("/:sessionId/recenter", handleRecenter(manager))
		}
		dev := api.Group("/dev")
		{
			dev.GET("/tours", handleListTours(manager))
			dev.PUT("/config", handleSetDevConfig(manager))
		}
	}

	h.GET("/ws/sessions/:sessionId", wsHandler.HandleWebSocket)

	return h
}

func recoveryMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				ctx.String(consts.StatusInternalServerError, "Internal Server Error")
			}
		}()
		ctx.Next(c)
	}
}

func loggerMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		ctx.Next(c)
	}
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

func handleCreateSession(manager *tour.Manager) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		var payload createSessionRequest
		if err := ctx.Bind(&payload); err != nil {
			respondError(ctx, consts.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}

		info, err := manager.CreateSession(tour.CreateOptions{
			TourID:   payload.TourID,
			Origin:   payload.Origin,
			AutoPlay: payload.AutoPlay,
		})
		if err != nil {
			if errors.Is(err, tour.ErrTourNotFound) {
				respondError(ctx, consts.StatusNotFound, "tour_not_found", err.Error())
				return
			}
			respondError(ctx, consts.StatusInternalServerError, "create_failed", err.Error())
			return
		}
		ilog.EventInfo(c, "CreateSession", "info", info)

		ctx.JSON(consts.StatusCreated, info)
	}
}

func handleGetSession(manager *tour.Manager) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("sessionId")
		state, err := manager.GetState(sessionID)
		if err != nil {
			if errors.Is(err, tour.ErrSessionNotFound) {
				respondError(ctx, consts.StatusNotFound, "session_not_found", err.Error())
				return
			}
			respondError(ctx, consts.StatusInternalServerError, "state_fetch_failed", err.Error())
			return
		}

		ctx.JSON(consts.StatusOK, state)
	}
}

func handleControls(manager *tour.Manager) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("sessionId")
		var payload controlRequest
		if err := ctx.Bind(&payload); err != nil {
			respondError(ctx, consts.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}

		session, err := manager.Lookup(sessionID, payload.Token)
		if err != nil {
			respondLookupError(ctx, err)
			return
		}

		ilog.EventInfo(c, "Control", "sessionID", sessionID, "action", payload.Action)

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
				respondError(ctx, consts.StatusBadRequest, "invalid_request", "orientation payload is required")
				return
			}
			session.SetOrientationPermission(*payload.Orientation)
		default:
			respondError(ctx, consts.StatusBadRequest, "unknown_action", "unsupported control action")
			return
		}
		if err != nil {
			respondError(ctx, consts.StatusBadRequest, "control_failed", err.Error())
			return
		}

		ctx.JSON(consts.StatusOK, session.State())
	}
}

func handleRecenter(manager *tour.Manager) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("sessionId")
		var payload recenterRequest
		if err := ctx.Bind(&payload); err != nil {
			respondError(ctx, consts.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}

		session, err := manager.Lookup(sessionID, payload.Token)
		if err != nil {
			respondLookupError(ctx, err)
			return
		}

		if err := session.Controller().Recenter(); err != nil {
			respondError(ctx, consts.StatusInternalServerError, "recenter_failed", err.Error())
			return
		}
		ctx.Status(consts.StatusNoContent)
	}
}

func handleListTours(manager *tour.Manager) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, manager.Registry().List())
	}
}

func handleSetDevConfig(manager *tour.Manager) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		var payload devConfigRequest
		if err := ctx.Bind(&payload); err != nil {
			respondError(ctx, consts.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}
		if err := manager.Registry().SetActive(payload.TourID); err != nil {
			respondError(ctx, consts.StatusNotFound, "tour_not_found", err.Error())
			return
		}
		ctx.Status(consts.StatusNoContent)
	}
}

func respondLookupError(ctx *app.RequestContext, err error) {
	if errors.Is(err, tour.ErrSessionNotFound) {
		respondError(ctx, consts.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if errors.Is(err, tour.ErrInvalidToken) {
		respondError(ctx, consts.StatusUnauthorized, "invalid_token", err.Error())
		return
	}
	respondError(ctx, consts.StatusInternalServerError, "lookup_failed", err.Error())
}

func respondError(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]interface{}{
		"kind": "ERROR",
		"data": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
