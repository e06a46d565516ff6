// Package http wires every handler and middleware into a *gin.Engine,
// grounded on the teacher's internal/http.NewRouter + RouterConfig.
package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/http/handlers"
	"github.com/pierdell/mediaforge-backend/internal/http/middleware"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// RouterConfig bundles every handler and middleware instance the router
// needs; internal/app is the only caller.
type RouterConfig struct {
	Log                   *logger.Logger
	Health                *handlers.HealthHandler
	Auth                  *handlers.AuthHandler
	Project               *handlers.ProjectHandler
	Media                 *handlers.MediaHandler
	Dataset               *handlers.DatasetHandler
	Search                *handlers.SearchHandler
	Indexing              *handlers.IndexingHandler
	ActiveLearning        *handlers.ActiveLearningHandler
	Augmentation          *handlers.AugmentationHandler
	Quality               *handlers.QualityHandler
	Training              *handlers.TrainingHandler
	Realtime              *handlers.RealtimeHandler
	AuthMW                *middleware.AuthMiddleware
	Users                 repos.UserRepo
	Members               repos.ProjectMemberRepo
	CORSAllowedOrigins    []string
	RateLimiter           middleware.Limiter
	RateLimitPerMinute    int
}

// role returns the RequireProjectRole middleware for the given minimum
// role against cfg's user/member repos, so route registration below
// stays a single readable line per endpoint.
func (cfg RouterConfig) role(min types.ProjectRole) gin.HandlerFunc {
	return middleware.RequireProjectRole(cfg.Users, cfg.Members, min)
}

// NewRouter registers every REST/WS/SSE route spec.md §6 names, with
// middleware chains matching the teacher's layered gin.Engine.Use plus
// per-group RequireAuth/RequireProjectRole pattern.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("mediaforge"))
	r.Use(middleware.AttachRequestContext())
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimitPerMinute))

	r.GET("/healthz", cfg.Health.HealthCheck)

	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/register", cfg.Auth.Register)
		auth.POST("/login", cfg.Auth.Login)
		authed := auth.Group("")
		authed.Use(cfg.AuthMW.RequireAuth())
		authed.GET("/me", cfg.Auth.Me)
		authed.PATCH("/me", cfg.Auth.UpdateMe)
		authed.POST("/api-keys", cfg.Auth.IssueAPIKey)
		authed.GET("/api-keys", cfg.Auth.ListAPIKeys)
		authed.DELETE("/api-keys/:id", cfg.Auth.DeleteAPIKey)
	}

	api := r.Group("/api/v1")
	api.Use(cfg.AuthMW.RequireAuth())

	api.POST("/projects", cfg.Project.Create)
	api.GET("/projects", cfg.Project.List)

	proj := api.Group("/projects/:project_id")
	proj.Use(cfg.role(types.RoleViewer))
	{
		proj.GET("", cfg.Project.Get)
		proj.DELETE("", cfg.role(types.RoleOwner), cfg.Project.Delete)
		proj.PATCH("", cfg.role(types.RoleAdmin), cfg.Project.Update)

		proj.POST("/members", cfg.role(types.RoleAdmin), cfg.Project.AddMember)
		proj.GET("/members", cfg.Project.ListMembers)
		proj.PATCH("/members/:user_id", cfg.role(types.RoleAdmin), cfg.Project.UpdateMemberRole)
		proj.DELETE("/members/:user_id", cfg.role(types.RoleAdmin), cfg.Project.RemoveMember)

		proj.POST("/prompts", cfg.role(types.RoleEditor), cfg.Project.CreatePrompt)
		proj.GET("/prompts", cfg.Project.ListPrompts)
		proj.DELETE("/prompts/:prompt_id", cfg.role(types.RoleEditor), cfg.Project.DeletePrompt)

		proj.POST("/media/upload", cfg.role(types.RoleEditor), cfg.Media.Upload)
		proj.GET("/media", cfg.Media.List)

		proj.POST("/datasets", cfg.role(types.RoleEditor), cfg.Dataset.Create)
		proj.GET("/datasets", cfg.Dataset.List)

		proj.POST("/search", cfg.Search.Search)
		proj.POST("/indexing/run", cfg.role(types.RoleEditor), cfg.Indexing.Run)
		proj.GET("/indexing/status", cfg.Indexing.Status)

		proj.POST("/training/jobs", cfg.role(types.RoleEditor), cfg.Training.Create)
		proj.GET("/training/jobs", cfg.Training.List)
	}

	api.GET("/training/jobs/:job_id", cfg.Training.Get)
	api.POST("/training/jobs/:job_id/cancel", cfg.Training.Cancel)

	api.GET("/media/:media_id", cfg.Media.Get)
	api.GET("/media/:media_id/url", cfg.Media.SignedURL)
	api.DELETE("/media/:media_id", cfg.Media.Delete)

	api.POST("/search/similar", cfg.Search.Similar)

	ds := api.Group("/datasets/:dataset_id")
	{
		ds.GET("", cfg.Dataset.Get)
		ds.POST("/items", cfg.Dataset.AddItem)
		ds.GET("/items", cfg.Dataset.ListItems)
		ds.POST("/versions", cfg.Dataset.CreateVersion)
		ds.GET("/versions", cfg.Dataset.ListVersions)

		ds.POST("/items/:item_id/annotations", cfg.Dataset.AddAnnotation)
		ds.POST("/items/:item_id/annotations/bulk", cfg.Dataset.BulkAddAnnotations)
		ds.GET("/items/:item_id/annotations", cfg.Dataset.ListAnnotations)
	}

	api.POST("/active-learning/:dataset_id/suggest", cfg.ActiveLearning.Suggest)
	api.POST("/active-learning/:dataset_id/auto-annotate", cfg.ActiveLearning.AutoAnnotate)
	api.POST("/augmentation/:dataset_id/configure", cfg.Augmentation.Configure)
	api.POST("/augmentation/:dataset_id/run", cfg.Augmentation.Run)
	api.POST("/quality/:dataset_id/agreement", cfg.Quality.Agreement)
	api.GET("/quality/:dataset_id/summary", cfg.Quality.Summary)

	api.GET("/datasets/:dataset_id/versions/:version_id/export", cfg.Dataset.VersionExportURL)

	items := api.Group("/items/:item_id")
	{
		items.GET("/overlay", cfg.Dataset.ItemOverlay)
	}

	api.POST("/quality/reviews", cfg.Quality.CreateReview)

	// WebSocket endpoints sit outside /api/v1 and outside RequireAuth:
	// a failed `?token=` must complete the upgrade handshake and close
	// with code 4001 rather than answer 401, so browser clients can
	// distinguish auth loss from the endpoint being gone.
	r.GET("/ws/projects/:project_id", cfg.Realtime.ConnectProject)
	r.GET("/ws/annotate/:item_id", cfg.Realtime.ConnectItem)
	api.GET("/projects/:project_id/events", cfg.Realtime.Events)

	return r
}
