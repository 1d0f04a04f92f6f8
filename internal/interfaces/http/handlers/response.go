// Package handlers implements the REST and websocket endpoints of the service.
package handlers

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/astragrid/internal/application/dto"
	"github.com/turtacn/astragrid/pkg/errors"
)

// traceID returns the id of the request span, if any.
func traceID(c *gin.Context) string {
	sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// respond writes a success envelope.
func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, dto.SuccessResponse(data, traceID(c)))
}

// respondError writes an error envelope with the status mapped from the error kind.
func respondError(c *gin.Context, err error) {
	c.JSON(errors.HTTPStatusOf(err), dto.ErrorResponse(err, traceID(c)))
}
