package serverutils

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) *Response {
	return &Response{
		Message: message,
		Data:    data,
	}
}

var validate = validator.New()

// ValidateRequest runs struct-tag validation on a request DTO.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}
	return nil
}

// ErrorHandlerMiddleware converts AppErrors bubbling out of handlers into
// stable JSON error bodies.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		if appErr, ok := AsAppError(err); ok {
			return ctx.Status(appErr.Status).JSON(fiber.Map{
				"message": appErr.Message,
				"code":    appErr.Code,
			})
		}

		var fiberErr *fiber.Error
		if e, ok := err.(*fiber.Error); ok {
			fiberErr = e
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{
				"message": fiberErr.Message,
				"code":    "http_error",
			})
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "internal server error",
			"code":    "internal",
		})
	}
}
