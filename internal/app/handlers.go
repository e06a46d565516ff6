package app

import (
	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	"github.com/pierdell/mediaforge-backend/internal/http/handlers"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/realtime"
	"github.com/pierdell/mediaforge-backend/internal/realtime/collab"
)

// Handlers bundles every HTTP handler. Grounded on the teacher's
// internal/app/handlers.go (the http.go variant's wireHandlers).
type Handlers struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Project        *handlers.ProjectHandler
	Media          *handlers.MediaHandler
	Dataset        *handlers.DatasetHandler
	Search         *handlers.SearchHandler
	Indexing       *handlers.IndexingHandler
	ActiveLearning *handlers.ActiveLearningHandler
	Augmentation   *handlers.AugmentationHandler
	Quality        *handlers.QualityHandler
	Training       *handlers.TrainingHandler
	Realtime       *handlers.RealtimeHandler
}

func wireHandlers(log *logger.Logger, s Services, r *repos.Repos, collabMgr *collab.Manager, hub *realtime.SSEHub) Handlers {
	log.Info("wiring handlers...")
	return Handlers{
		Health:         handlers.NewHealthHandler(),
		Auth:           handlers.NewAuthHandler(s.Auth, r.User, r.APIKey),
		Project:        handlers.NewProjectHandler(s.Project),
		Media:          handlers.NewMediaHandler(s.Media),
		Dataset:        handlers.NewDatasetHandler(s.Dataset),
		Search:         handlers.NewSearchHandler(s.Search),
		Indexing:       handlers.NewIndexingHandler(s.Indexing),
		ActiveLearning: handlers.NewActiveLearningHandler(s.ActiveLearning),
		Augmentation:   handlers.NewAugmentationHandler(s.Augmentation),
		Quality:        handlers.NewQualityHandler(s.Quality),
		Training:       handlers.NewTrainingHandler(s.Training),
		Realtime:       handlers.NewRealtimeHandler(log, collabMgr, hub, r.User, s.Auth),
	}
}
