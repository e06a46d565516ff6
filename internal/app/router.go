package app

import (
	"github.com/gin-gonic/gin"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	apphttp "github.com/pierdell/mediaforge-backend/internal/http"
	"github.com/pierdell/mediaforge-backend/internal/platform/config"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg config.Config, h Handlers, mw Middleware, r *repos.Repos) *gin.Engine {
	log.Info("wiring router...")
	return apphttp.NewRouter(apphttp.RouterConfig{
		Log:                log,
		Health:             h.Health,
		Auth:               h.Auth,
		Project:            h.Project,
		Media:              h.Media,
		Dataset:            h.Dataset,
		Search:             h.Search,
		Indexing:           h.Indexing,
		ActiveLearning:     h.ActiveLearning,
		Augmentation:       h.Augmentation,
		Quality:            h.Quality,
		Training:           h.Training,
		Realtime:           h.Realtime,
		AuthMW:             mw.Auth,
		Users:              r.User,
		Members:            r.ProjectMember,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        mw.RateLimiter,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
}
