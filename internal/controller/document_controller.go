package controller

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"paperchat-be/internal/dto"
	"paperchat-be/internal/pkg/serverutils"
	"paperchat-be/internal/service"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Fetch(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
}

func NewDocumentController(documentService service.IDocumentService) IDocumentController {
	return &documentController{
		documentService: documentService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/document/v1")
	h.Post(":sessionId", c.Upload)
	h.Post(":sessionId/fetch", c.Fetch)
	h.Get(":sessionId", c.List)
	h.Delete(":sessionId/:docId", c.Delete)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return serverutils.BadRequest("invalid session id")
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return serverutils.BadRequest("multipart field 'file' is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return serverutils.BadRequest("uploaded file could not be read")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return serverutils.BadRequest("uploaded file could not be read")
	}

	res, err := c.documentService.UploadDocument(ctx.Context(), sessionId, fileHeader.Filename, data)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Document queued", res))
}

func (c *documentController) Fetch(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return serverutils.BadRequest("invalid session id")
	}

	var req dto.FetchDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.BadRequest("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.FetchDocument(ctx.Context(), sessionId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Document queued", res))
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return serverutils.BadRequest("invalid session id")
	}

	res, err := c.documentService.GetAllDocuments(ctx.Context(), sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list documents", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return serverutils.BadRequest("invalid session id")
	}
	docId, err := uuid.Parse(ctx.Params("docId"))
	if err != nil {
		return serverutils.BadRequest("invalid document id")
	}

	if err := c.documentService.DeleteDocument(ctx.Context(), sessionId, docId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete document", nil))
}
