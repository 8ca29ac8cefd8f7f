package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// observe 记录每个请求的路由、状态码与耗时；未匹配路由统一记为 "unmatched"
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveHTTP(route, c.Writer.Status(), time.Since(start))
	}
}

// BasicAuth 为整个站点增加 Basic Auth，/health 免认证便于探活。
// user 或 pass 为空时不启用
func BasicAuth(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	if user == "" || pass == "" {
		return func(c *gin.Context) { c.Next() }
	}
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
