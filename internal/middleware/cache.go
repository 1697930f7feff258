package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore keeps browsers and shared proxies from caching per-student
// responses such as a question paper or a result.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Cache-Control", "no-store, private")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		h.Add("Vary", "Authorization")
		c.Next()
	}
}
