package controller

import (
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"paperchat-be/internal/dto"
	"paperchat-be/internal/pkg/logger"
	"paperchat-be/internal/pkg/serverutils"
	"paperchat-be/internal/registry"
	"paperchat-be/internal/status"
	internalWS "paperchat-be/internal/websocket"
)

type IStatusController interface {
	RegisterRoutes(r fiber.Router)
	Get(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
}

type statusController struct {
	tracker *status.Tracker
	reg     *registry.Registry
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewStatusController(tracker *status.Tracker, reg *registry.Registry, hub *internalWS.Hub, log logger.ILogger) IStatusController {
	return &statusController{
		tracker: tracker,
		reg:     reg,
		hub:     hub,
		logger:  log,
	}
}

func (c *statusController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/status/v1")
	h.Get(":sessionId", c.Get)
	h.Get(":sessionId/ws", c.ServeWs)
}

func (c *statusController) Get(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return serverutils.BadRequest("invalid session id")
	}

	snap, err := c.tracker.Status(sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get status", dto.StatusResponse{
		Processing:          snap.Processing,
		CurrentDocumentName: snap.CurrentDocumentName,
		QueueDepth:          snap.QueueDepth,
	}))
}

// ServeWs upgrades the connection and subscribes it to the session's
// document status events.
func (c *statusController) ServeWs(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return serverutils.BadRequest("invalid session id")
	}

	// Reject before upgrading so the client gets a proper HTTP error.
	if _, err := c.reg.Get(sessionId); err != nil {
		return err
	}

	if fiberws.IsWebSocketUpgrade(ctx) {
		return fiberws.New(func(conn *fiberws.Conn) {
			c.logger.Info("Status", "Websocket subscriber connected", map[string]interface{}{"session_id": sessionId})
			internalWS.ServeWs(c.hub, conn, sessionId)
			c.logger.Info("Status", "Websocket subscriber disconnected", map[string]interface{}{"session_id": sessionId})
		})(ctx)
	}
	return fiber.ErrUpgradeRequired
}
