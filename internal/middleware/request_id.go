package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eld_trip_planner/internal/obs"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with an id, reusing the caller's when sent, and carries it in
// the request context for timing logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(obs.WithRequestID(c.Request.Context(), id))
		c.Header(RequestIDHeader, id)
		c.Set(string(obs.RequestIDKey), id)
		c.Next()
	}
}
