package serverutils

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware recovers every handler error into the JSON envelope.
// Nothing propagates past the request boundary.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		log.Printf("[ERROR] Unhandled: %v", err)
		return ctx.Status(fiber.StatusInternalServerError).
			JSON(ErrorResponse(fiber.StatusInternalServerError, "Something went wrong, please try again later."))
	}
}
