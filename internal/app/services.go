package app

import (
	"gorm.io/gorm"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	"github.com/pierdell/mediaforge-backend/internal/platform/config"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/platform/temporalx"
	"github.com/pierdell/mediaforge-backend/internal/realtime"
	"github.com/pierdell/mediaforge-backend/internal/services"
)

// Services bundles every application service. Grounded on the teacher's
// internal/app/services.go Services struct + wireServices.
type Services struct {
	Auth           *services.AuthService
	Project        *services.ProjectService
	Media          *services.MediaService
	Dataset        *services.DatasetService
	Search         *services.SearchService
	Indexing       *services.IndexingService
	ActiveLearning *services.ActiveLearningService
	Augmentation   *services.AugmentationService
	Quality        *services.QualityService
	Training       *services.TrainingService
	JobNotifier    services.JobNotifier
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg config.Config, r *repos.Repos, clients Clients, hub *realtime.SSEHub) Services {
	log.Info("wiring services...")

	var emitter services.SSEEmitter
	if cfg.UseRedis && clients.Bus != nil {
		emitter = &services.BusEmitter{Bus: clients.Bus}
	} else {
		emitter = &services.HubEmitter{Hub: hub}
	}
	notifier := services.NewSSEJobNotifier(emitter)
	dispatcher := temporalx.NewDispatcher(clients.Temporal, log)

	presets, err := config.LoadLabelSchemaPresets(cfg.LabelSchemaPath)
	if err != nil {
		log.Warn("label schema presets not loaded", "path", cfg.LabelSchemaPath, "error", err)
	}

	return Services{
		Auth:           services.NewAuthService(db, log, r.User, r.APIKey, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		Project:        services.NewProjectService(db, log, r),
		Media:          services.NewMediaService(db, log, r, clients.Storage, clients.Index),
		Dataset:        services.NewDatasetService(db, log, r, clients.Storage, presets),
		Search:         services.NewSearchService(log, r, clients.Index, clients.Enc),
		Indexing:       services.NewIndexingService(db, log, r, dispatcher),
		ActiveLearning: services.NewActiveLearningService(db, log, r),
		Augmentation:   services.NewAugmentationService(db, log, r),
		Quality:        services.NewQualityService(db, log, r),
		Training:       services.NewTrainingService(db, log, r, dispatcher),
		JobNotifier:    notifier,
	}
}
