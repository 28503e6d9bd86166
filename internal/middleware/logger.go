package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"advisorbooking/internal/pkg/logging"
	"advisorbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestLogger logs one line per request and turns panics into a JSON 500.
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		rid := requestID(c)
		c.Header("X-Request-ID", rid)

		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("request panic",
					"request_id", rid,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"error", fmt.Sprintf("%v", recovered),
					"stack", string(debug.Stack()),
				)
				response.Abort(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal Server Error")
				return
			}

			attrs := []any{
				"request_id", rid,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"query", c.Request.URL.RawQuery,
				"status", c.Writer.Status(),
				"latency", time.Since(start).String(),
				"client_ip", c.ClientIP(),
				"user_id", c.GetInt64("user_id"),
				"role", c.GetString("role"),
			}
			if len(c.Errors) > 0 {
				attrs = append(attrs, "errors", c.Errors.String())
			}
			switch {
			case c.Writer.Status() >= http.StatusInternalServerError:
				logger.Error("request", attrs...)
			case c.Writer.Status() >= http.StatusBadRequest:
				logger.Warn("request", attrs...)
			default:
				logger.Info("request", attrs...)
			}
		}()

		c.Next()
	}
}

func requestID(c *gin.Context) string {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = c.GetHeader("X-Request-Id")
	}
	if id == "" {
		id = uuid.NewString()
	}
	return id
}
