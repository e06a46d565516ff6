package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS mirrors the teacher's gin-contrib/cors wiring, generalized to
// read its origin allowlist from config instead of a hardcoded frontend
// port list, since this module has no fixed frontend.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	wildcard := len(origins) == 0
	if wildcard {
		origins = []string{"*"}
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-API-Key", "X-Trace-Id"},
		// Credentialed cookies/headers are meaningless with a wildcard
		// origin, and the cors package rejects that combination outright.
		AllowCredentials: !wildcard,
		MaxAge:           12 * time.Hour,
	})
}
