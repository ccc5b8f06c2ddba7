package middlewares

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/devscore/integrity/infrastructure/config"
	"github.com/gin-gonic/gin"
)

// CorsMiddleware echoes the request origin back when it is allowed by the
// configuration. Preflight requests end here with 204.
func CorsMiddleware(cfg *config.Config) gin.HandlerFunc {
	cors := cfg.Cors
	origins := splitList(cors.AllowOrigins)
	anyOrigin := slices.Contains(origins, "*")
	methods := strings.Join(splitList(cors.AllowMethods), ", ")
	headers := strings.Join(splitList(cors.AllowHeaders), ", ")
	maxAge := strconv.Itoa(int(cors.MaxAge.Seconds()))

	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		if origin != "" && (anyOrigin || slices.Contains(origins, origin)) {
			header.Set("Access-Control-Allow-Origin", origin)
			if cors.AllowCredentials {
				header.Set("Access-Control-Allow-Credentials", "true")
			}
			if methods != "" {
				header.Set("Access-Control-Allow-Methods", methods)
			}
			if headers != "" {
				header.Set("Access-Control-Allow-Headers", headers)
			}
			if cors.MaxAge > 0 {
				header.Set("Access-Control-Max-Age", maxAge)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
