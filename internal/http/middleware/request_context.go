package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/pierdell/mediaforge-backend/internal/platform/ctxutil"
)

// AttachRequestContext stamps every request with a trace/request id
// before the logging, CORS, rate-limit and auth middleware run, so downstream logging and SSE
// emission always has one to propagate (spec.md §9 observability note).
// Runs after otelgin, so when OTEL_ENABLED starts a real span for this
// request, its trace id becomes the propagated X-Trace-Id instead of a
// fresh uuid — the two id spaces line up in logs and collector output.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		td := &ctxutil.TraceData{RequestID: uuid.New().String()}
		if incoming := c.GetHeader("X-Trace-Id"); incoming != "" {
			td.TraceID = incoming
		} else if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.HasTraceID() {
			td.TraceID = spanCtx.TraceID().String()
		} else {
			td.TraceID = td.RequestID
		}
		ctx := ctxutil.WithTraceData(c.Request.Context(), td)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", td.RequestID)
		c.Header("X-Trace-Id", td.TraceID)
		c.Next()
	}
}
