package middleware

import (
	"fmt"
	"time"

	"github.com/carewell/patient-registry/util"
	"github.com/gin-gonic/gin"
)

// EndpointCallLogger logs each HTTP request as a security/endpoint event.
// It relies on DatabaseMiddleware having already set DB in context and
// util.SetSecurityLoggerDB having been called during startup so events
// will be persisted to the SecurityLog table.
func EndpointCallLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		details := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"raw_path":    c.Request.URL.Path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"query":       c.Request.URL.RawQuery,
		}

		event := util.SecurityEvent{
			EventType: util.EventEndpointCall,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Message:   fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status),
			Details:   details,
		}
		if principal, ok := GetAuthPatient(c); ok {
			details["patient_id"] = principal.ID
			event.UserID = fmt.Sprintf("%d", principal.ID)
			event.Email = principal.Email
		}

		util.LogSecurityEvent(event)
	}
}
