// Package config is this module's ambient configuration surface,
// grounded on the teacher's internal/app.Config + internal/utils
// GetEnv/GetEnvAsInt helpers, generalized from the teacher's
// JWT/token-TTL-only config to the full set of env-var knobs this
// module's components need (spec.md §5 "Configuration").
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pierdell/mediaforge-backend/internal/platform/envutil"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

const defaultAccessTTL = 24 * time.Hour

// Config is every env-driven knob read at startup, logged once so a
// deployment's effective configuration is visible in its own logs.
type Config struct {
	// HTTP / auth
	Port           string
	JWTSecretKey   string
	AccessTokenTTL time.Duration
	RunServer      bool
	RunWorker      bool

	// Object storage (component A)
	StorageRoot      string
	StoragePublicURL string

	// Vector index (component B)
	QdrantURL    string
	QdrantPrefix string
	UseMemoryVectorIndex bool

	// ML provider (encoders)
	MLProviderURL        string
	MLProviderAPIKey     string
	MLProviderMaxRetries int

	// Worker pool
	WorkerConcurrency int
	WorkerQueues      []string

	// HTTP
	CORSAllowedOrigins []string

	// Rate limiting (internal/http/middleware.RateLimit)
	RateLimitPerMinute int

	// Redis (realtime broadcast bus, rate limiter)
	RedisAddr string
	UseRedis  bool

	// Reprocess sweeper (component E)
	ReprocessEnabled bool

	// LabelSchemaPath, if set, points to a YAML file of named label
	// schema presets; a new dataset gets one only when its create request
	// names it and sends no explicit schema (SPEC_FULL §6
	// "gopkg.in/yaml.v3 ... label-schema presets").
	LabelSchemaPath string
}

// LabelSchemaPreset is one named preset a YAML overlay file can define.
type LabelSchemaPreset struct {
	Name    string   `yaml:"name"`
	Classes []string `yaml:"classes"`
}

// Load reads every knob from the environment, applying the same
// defaults-logged-at-startup discipline as the teacher's LoadConfig.
func Load(log *logger.Logger) Config {
	cfg := Config{
		Port:           envutil.String("PORT", "8080"),
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", "dev-secret-change-me"),
		AccessTokenTTL: envutil.Duration("ACCESS_TOKEN_TTL", defaultAccessTTL),
		RunServer:      envutil.Bool("RUN_SERVER", true),
		RunWorker:      envutil.Bool("RUN_WORKER", false),

		StorageRoot:      envutil.String("STORAGE_ROOT", "./data/storage"),
		StoragePublicURL: envutil.String("STORAGE_PUBLIC_URL", ""),

		QdrantURL:            envutil.String("QDRANT_URL", ""),
		QdrantPrefix:         envutil.String("QDRANT_NAMESPACE_PREFIX", "mf"),
		UseMemoryVectorIndex: envutil.Bool("USE_MEMORY_VECTOR_INDEX", false),

		MLProviderURL:        envutil.String("ML_PROVIDER_URL", "http://localhost:9000"),
		MLProviderAPIKey:     envutil.String("ML_PROVIDER_API_KEY", ""),
		MLProviderMaxRetries: envutil.Int("ML_PROVIDER_MAX_RETRIES", 3),

		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 4),
		WorkerQueues:      envutil.StringSlice("WORKER_QUEUES", []string{"default", "gpu"}),

		CORSAllowedOrigins: envutil.StringSlice("CORS_ALLOWED_ORIGINS", nil),

		RateLimitPerMinute: envutil.Int("RATE_LIMIT_PER_MINUTE", 120),

		RedisAddr: envutil.String("REDIS_ADDR", "localhost:6379"),
		UseRedis:  envutil.Bool("USE_REDIS", false),

		ReprocessEnabled: envutil.Bool("REPROCESS_SWEEPER_ENABLED", true),

		LabelSchemaPath: envutil.String("LABEL_SCHEMA_PATH", ""),
	}

	log.Info("config loaded",
		"port", cfg.Port,
		"run_server", cfg.RunServer,
		"run_worker", cfg.RunWorker,
		"worker_concurrency", cfg.WorkerConcurrency,
		"qdrant_url", cfg.QdrantURL,
		"use_memory_vector_index", cfg.UseMemoryVectorIndex,
		"ml_provider_url", cfg.MLProviderURL,
		"use_redis", cfg.UseRedis,
		"rate_limit_per_minute", cfg.RateLimitPerMinute,
	)
	return cfg
}

// LoadLabelSchemaPresets reads the optional YAML overlay named by
// LabelSchemaPath. A missing path is not an error: most deployments
// have no overlay and datasets start with an empty label schema.
func LoadLabelSchemaPresets(path string) ([]LabelSchemaPreset, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var presets []LabelSchemaPreset
	if err := yaml.Unmarshal(raw, &presets); err != nil {
		return nil, err
	}
	return presets, nil
}
