package middleware

import (
	"log/slog"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"restaurant-directory-api/apperr"
)

// ErrorHandler renders the last error a handler attached with c.Error as
// {"message": ...}. Internal errors are logged and reported to Sentry; their
// stack, kept in the error's Meta, is included only when exposeStack is set.
func ErrorHandler(exposeStack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		last := c.Errors.Last()
		status := apperr.Status(last.Err)
		body := gin.H{"message": apperr.Message(last.Err)}

		if status >= http.StatusInternalServerError {
			slog.Error("request failed",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", last.Err,
			)
			if hub := sentrygin.GetHubFromContext(c); hub != nil {
				hub.CaptureException(last.Err)
			}
			if stack, ok := last.Meta.(string); ok && exposeStack {
				body["stack"] = stack
			}
		}
		c.JSON(status, body)
	}
}
