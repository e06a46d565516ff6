// Package db owns the Postgres connection and schema migration for
// component C's metadata store. Grounded on the teacher's
// internal/data/db/postgres.go connection-bootstrap pattern.
package db

import (
	"fmt"
	stdlog "log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/envutil"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "mediaforge")

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user, password, host, port, name,
	)

	gormLog := gormLogger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

// AutoMigrate creates/updates every table owned by component C. Run once
// at startup; GORM only adds columns/indexes, it never drops data.
func (s *PostgresService) AutoMigrate() error {
	return s.db.AutoMigrate(
		&types.User{},
		&types.APIKey{},
		&types.Project{},
		&types.ProjectMember{},
		&types.PromptTemplate{},
		&types.Media{},
		&types.MediaSource{},
		&types.Dataset{},
		&types.DatasetItem{},
		&types.DatasetVersion{},
		&types.Annotation{},
		&types.AnnotationReview{},
		&types.AgreementScore{},
		&types.TrainingJob{},
		&types.JobRun{},
		&types.IndexingJob{},
	)
}
