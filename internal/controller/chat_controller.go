package controller

import (
	"bufio"
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"paperchat-be/internal/dto"
	"paperchat-be/internal/pkg/logger"
	"paperchat-be/internal/pkg/serverutils"
	"paperchat-be/internal/service"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	logger      logger.ILogger
}

func NewChatController(chatService service.IChatService, log logger.ILogger) IChatController {
	return &chatController{
		chatService: chatService,
		logger:      log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post(":sessionId", c.Chat)
	h.Get(":sessionId/history", c.History)
}

// Chat streams the turn as newline-delimited JSON fragments. Session and
// request problems surface as normal error responses before the stream
// starts; once streaming, failures are reported in-band.
func (c *chatController) Chat(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return serverutils.BadRequest("invalid session id")
	}

	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.BadRequest("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if err := c.chatService.EnsureSession(ctx.Context(), sessionId); err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "application/x-ndjson")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// The fiber context is gone by the time this runs; disconnects are
		// detected through write failures and propagated by cancellation.
		streamCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		enc := json.NewEncoder(w)
		emit := func(f dto.ChatFragment) error {
			if err := enc.Encode(f); err != nil {
				cancel()
				return err
			}
			if err := w.Flush(); err != nil {
				cancel()
				return err
			}
			return nil
		}

		if err := c.chatService.StreamChat(streamCtx, sessionId, &req, emit); err != nil {
			// The session vanished before any fragment went out; the stream
			// is the only channel left to say so.
			if appErr, ok := serverutils.AsAppError(err); ok {
				_ = emit(dto.ChatFragment{Content: appErr.Message, Done: true})
				return
			}
			c.logger.Error("Chat", "Stream aborted", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
		}
	}))

	return nil
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return serverutils.BadRequest("invalid session id")
	}

	res, err := c.chatService.GetChatHistory(ctx.Context(), sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}
