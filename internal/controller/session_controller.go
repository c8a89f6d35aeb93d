package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"paperchat-be/internal/pkg/serverutils"
	"paperchat-be/internal/service"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessionService service.ISessionService
}

func NewSessionController(sessionService service.ISessionService) ISessionController {
	return &sessionController{
		sessionService: sessionService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Post("", c.Create)
	h.Delete(":id", c.End)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	res, err := c.sessionService.CreateSession(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *sessionController) End(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.BadRequest("invalid session id")
	}

	if err := c.sessionService.EndSession(ctx.Context(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success end session", nil))
}
