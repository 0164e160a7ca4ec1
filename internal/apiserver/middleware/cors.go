package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS answers preflight requests and echoes allowed origins. An empty list
// or "*" allows any origin.
type CORS struct {
	allowAll bool
	origins  map[string]struct{}
}

func NewCORS(allowed []string) *CORS {
	m := &CORS{origins: make(map[string]struct{}, len(allowed))}
	if len(allowed) == 0 {
		m.allowAll = true
	}
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			m.allowAll = true
			continue
		}
		m.origins[o] = struct{}{}
	}
	return m
}

// Allowed reports whether origin may call the API
func (m *CORS) Allowed(origin string) bool {
	if m.allowAll {
		return true
	}
	_, ok := m.origins[strings.TrimRight(origin, "/")]
	return ok
}

func (m *CORS) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && m.Allowed(origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Trace-Id, X-Lang")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			if origin != "" && !m.Allowed(origin) {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
