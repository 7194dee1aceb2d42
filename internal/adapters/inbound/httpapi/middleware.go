package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pourline/pourline/internal/platform/logging"
)

const (
	headerRequestID     = "X-Request-ID"
	contextKeyRequestID = "requestId"
)

// RequestID propagates or generates a request id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(contextKeyRequestID, requestID)
		c.Header(headerRequestID, requestID)
		c.Next()
	}
}

// Logger logs one record per request, skipping the given paths.
func Logger(logger *logging.Logger, skip ...string) gin.HandlerFunc {
	skipMap := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipMap[p] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skipMap[path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		requestID, _ := c.Get(contextKeyRequestID)
		status := c.Writer.Status()
		log := logger.With(
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"requestId", requestID,
		)
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request completed")
		case status >= http.StatusBadRequest:
			log.Warn("request completed")
		default:
			log.Info("request completed")
		}
	}
}

// Recovery turns a panic into a logged 500.
func Recovery(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID, _ := c.Get(contextKeyRequestID)
				logger.Error("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"requestId", requestID,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "an unexpected error occurred"})
			}
		}()
		c.Next()
	}
}
