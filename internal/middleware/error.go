package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/courier-backend/pkg/errors"
	"github.com/pushp314/courier-backend/pkg/logger"
)

// ErrorHandlerMiddleware maps AppErrors attached to the context onto
// HTTP responses and recovers panics.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", stack).
					Msg("Panic recovered")

				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "Internal Server Error",
					"message": "An unexpected error occurred",
				})
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			if appErr, ok := errors.AsAppError(err); ok {
				if appErr.Code == http.StatusTooManyRequests && appErr.RetryAfter > 0 {
					c.Header("Retry-After", fmt.Sprintf("%d", int(appErr.RetryAfter.Seconds())+1))
					c.JSON(appErr.Code, gin.H{
						"error":      appErr.Message,
						"retryAfter": int(appErr.RetryAfter.Seconds()) + 1,
					})
					return
				}
				c.JSON(appErr.Code, gin.H{
					"error": appErr.Message,
				})
				return
			}

			// Anything else is an internal failure; log it, hide the detail.
			logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled request error")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		}
	}
}
