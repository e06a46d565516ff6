package app

import (
	"github.com/pierdell/mediaforge-backend/internal/http/middleware"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// Middleware bundles every cross-cutting gin.HandlerFunc factory the
// router composes. Grounded on the teacher's internal/app/middleware.go.
type Middleware struct {
	Auth        *middleware.AuthMiddleware
	RateLimiter middleware.Limiter
}

func wireMiddleware(log *logger.Logger, s Services, clients Clients) Middleware {
	log.Info("wiring middleware...")
	var limiter middleware.Limiter
	if clients.Redis != nil {
		limiter = middleware.NewRedisLimiter(clients.Redis)
	} else {
		limiter = middleware.NewMemoryLimiter()
	}
	return Middleware{
		Auth:        middleware.NewAuthMiddleware(log, s.Auth),
		RateLimiter: limiter,
	}
}
