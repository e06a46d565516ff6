// Package app is the composition root: it loads configuration, dials
// every backing store, wires repos into services into handlers into a
// router, and exposes the lifecycle cmd/main.go drives. Grounded on the
// teacher's internal/app/app.go.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pierdell/mediaforge-backend/internal/data/db"
	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	"github.com/pierdell/mediaforge-backend/internal/jobs/runtime"
	"github.com/pierdell/mediaforge-backend/internal/jobs/temporalworker"
	"github.com/pierdell/mediaforge-backend/internal/jobs/worker"
	"github.com/pierdell/mediaforge-backend/internal/platform/config"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/platform/observability"
	"github.com/pierdell/mediaforge-backend/internal/realtime"
	"github.com/pierdell/mediaforge-backend/internal/realtime/collab"
)

// App bundles every wired layer. cmd/main.go only ever touches the
// fields and methods this package exposes.
type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      config.Config
	Repos    *repos.Repos
	Services Services
	Clients  Clients
	SSEHub   *realtime.SSEHub
	Collab   *collab.Manager
	Registry *runtime.Registry

	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

// New loads configuration, migrates the database, and wires every layer.
// It performs no I/O beyond that: starting workers/sweepers is Start's
// job, not New's, so a caller can inspect a fully wired App before
// deciding whether to run it (e.g. in a test harness).
func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("loading configuration...")
	cfg := config.Load(log)

	otelShutdown := observability.Init(context.Background(), log, observability.Config{
		ServiceName: "mediaforge",
		Environment: os.Getenv("APP_ENV"),
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrate(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	reposet := repos.NewRepos(theDB, log)

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("wire clients: %w", err)
	}

	sseHub := realtime.NewSSEHub(log)
	collabMgr := collab.NewManager(log)

	serviceset := wireServices(theDB, log, cfg, reposet, clients, sseHub)
	registry, err := wireRegistry(reposet, clients)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("wire job registry: %w", err)
	}

	handlerset := wireHandlers(log, serviceset, reposet, collabMgr, sseHub)
	mw := wireMiddleware(log, serviceset, clients)
	router := wireRouter(log, cfg, handlerset, mw, reposet)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Clients:      clients,
		SSEHub:       sseHub,
		Collab:       collabMgr,
		Registry:     registry,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background components cmd/main.go's RUN_SERVER /
// RUN_WORKER env switches gate: the worker pool (if runWorker) and the
// reprocess sweeper (only when Cfg.ReprocessEnabled is set). The HTTP server
// itself is started separately via Run, matching the teacher's split
// between Start (background) and Run (foreground, blocking).
func (a *App) Start(runServer, runWorker bool) {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if runWorker {
		w := worker.NewWorker(a.DB, a.Log, a.Repos.JobRun, a.Registry, a.Services.JobNotifier, a.Cfg.WorkerQueues)
		w.Start(ctx)

		// When Temporal is configured (TEMPORAL_ADDRESS set), also poll its
		// task queue: the indexing dispatcher starts a workflow per
		// job_run row (internal/services/indexing.go), so jobs submitted
		// that way need a Temporal worker to actually tick them. The SQL
		// worker pool above keeps claiming the same rows directly, which
		// is harmless (idempotent handlers, spec.md §4.D) and keeps a
		// Temporal outage from stalling enrichment entirely.
		if a.Clients.Temporal != nil {
			runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, a.DB, a.Repos.JobRun, a.Registry, a.Services.JobNotifier)
			if err != nil {
				a.Log.Warn("temporal worker not started", "error", err)
			} else if err := runner.Start(ctx); err != nil {
				a.Log.Warn("temporal worker failed to start", "error", err)
			}
		}
	}

	if a.Cfg.ReprocessEnabled {
		go a.Services.Indexing.RunSweeper(ctx)
	}

	if a.Cfg.UseRedis && a.Clients.Bus != nil {
		if err := a.Clients.Bus.StartForwarder(ctx, func(msg realtime.SSEMessage) {
			a.SSEHub.Broadcast(msg)
		}); err != nil {
			a.Log.Warn("redis forwarder failed to start", "error", err)
		}
	}

	_ = runServer // server lifecycle is driven by Run, not Start
}

// Run blocks serving HTTP on addr.
func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

// Close cancels background work and flushes logs. Safe to call multiple
// times and on a nil receiver.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Clients.Bus != nil {
		_ = a.Clients.Bus.Close()
	}
	if a.Clients.Temporal != nil {
		a.Clients.Temporal.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
