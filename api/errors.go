// Package api holds the pieces shared by every HTTP boundary: the
// error responder and the response envelope conventions.
package api

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	"github.com/shophub/shophub/auth"
	"github.com/shophub/shophub/logging"
)

// ErrorHandler builds the app-level fiber error handler. Handlers
// return errors; this is the only place that turns them into HTTP
// responses. In production, 5xx details are masked behind a generic
// message.
func ErrorHandler(logger logging.Logger, production bool) fiber.ErrorHandler {
	if logger == nil {
		logger = logging.Nop()
	}

	return func(c *fiber.Ctx, err error) error {
		// ozzo field errors carry a per-field map worth returning
		var fieldErrs validation.Errors
		if errors.As(err, &fieldErrs) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error":  "Validation failed",
				"fields": fieldErrs,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiberErr.Message,
			})
		}

		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
				WithCode(goerrors.CodeInternal)
		}

		status := auth.MapErrorStatus(richErr)

		if status >= http.StatusInternalServerError {
			logger.Error(
				"request failed path=%s category=%s text_code=%s details=%s",
				c.OriginalURL(), richErr.Category, richErr.TextCode,
				print.MaybePrettyJSON(richErr.Metadata),
			)
		} else {
			logger.Info(
				"request rejected path=%s status=%d message=%s",
				c.OriginalURL(), status, richErr.Message,
			)
		}

		message := richErr.Message
		if production && status >= http.StatusInternalServerError {
			message = "Server error"
		}

		return c.Status(status).JSON(fiber.Map{
			"error": message,
		})
	}
}
