package middleware

import (
	"context"
	"strings"

	"codetrack/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	traceIDHeader   = "X-Trace-Id"
	requestIDHeader = "X-Request-Id"

	traceIDContextKey   = "trace_id"
	requestIDContextKey = "request_id"
	identityContextKey  = "identity"
)

// TraceContextMiddleware ensures trace/request ids are in context and
// response headers.
func TraceContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader(traceIDHeader))
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(traceIDContextKey, traceID)
		ctx := context.WithValue(c.Request.Context(), contextkey.TraceID, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(traceIDHeader, traceID)

		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDContextKey, requestID)
		ctx = context.WithValue(c.Request.Context(), contextkey.RequestID, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()
	}
}

// IdentityContext copies the signed-in identity into the request context so
// log lines carry it. The provider reads the current session state; an empty
// identity means signed out and adds nothing.
func IdentityContext(provider func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if provider != nil {
			if identity := provider(); identity != "" {
				c.Set(identityContextKey, identity)
				ctx := context.WithValue(c.Request.Context(), contextkey.Identity, identity)
				c.Request = c.Request.WithContext(ctx)
			}
		}
		c.Next()
	}
}
