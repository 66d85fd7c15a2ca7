package middleware

import (
	"context"

	"github.com/portdeck/portdeck/pkg/logctx"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLoggerMiddleware attaches a request-scoped logger enriched with
// trace_id and customer_id (if present) to gin.Context and request context.
func RequestLoggerMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID, _ := c.Get(logctx.KeyTraceID)

		reqLogger := base.With("trace_id", traceID)
		if cid := c.GetString(logctx.KeyCustomerID); cid != "" {
			reqLogger = reqLogger.With("customer_id", cid)
		}
		c.Set(logctx.KeyLogger, reqLogger)

		// also attach to std context
		ctx := context.WithValue(c.Request.Context(), logctx.KeyLogger, reqLogger)
		c.Request = c.Request.WithContext(ctx)

		// mirror trace id to response header when available
		if s, ok := traceID.(string); ok && s != "" {
			c.Writer.Header().Set("X-Request-ID", s)
		}

		c.Next()
	}
}
