package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware sets the cross-origin headers every response carries and
// short-circuits OPTIONS preflight requests with 204.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE, PATCH")
		header.Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization")
		header.Set("Access-Control-Max-Age", "86400")
		header.Set("Access-Control-Allow-Credentials", "true")
		header.Set("Content-Type", "application/json")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
