package app

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/pierdell/mediaforge-backend/internal/platform/config"
	"github.com/pierdell/mediaforge-backend/internal/platform/encoders"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/platform/mlprovider"
	"github.com/pierdell/mediaforge-backend/internal/platform/storage"
	"github.com/pierdell/mediaforge-backend/internal/platform/temporalx"
	"github.com/pierdell/mediaforge-backend/internal/platform/vectorindex"
	"github.com/pierdell/mediaforge-backend/internal/realtime/bus"
)

// Clients bundles every external-system handle the service layer needs:
// the content store, the vector index, the ML provider's encoder
// singletons, and (optionally) Redis-backed cross-process plumbing and
// a Temporal client. Grounded on the teacher's internal/app/clients.go.
type Clients struct {
	Storage  storage.Store
	Index    vectorindex.Index
	Enc      *encoders.Manager
	Redis    *goredis.Client
	Bus      bus.Bus
	Temporal temporalsdkclient.Client
}

func wireClients(log *logger.Logger, cfg config.Config) (Clients, error) {
	log.Info("wiring clients...")

	var store storage.Store
	store = storage.NewDiskStore(log, cfg.StorageRoot, cfg.StoragePublicURL)

	var index vectorindex.Index
	if cfg.UseMemoryVectorIndex || cfg.QdrantURL == "" {
		index = vectorindex.NewMemoryIndex()
	} else {
		qi, err := vectorindex.NewQdrantIndex(log, vectorindex.QdrantConfig{
			URL:    cfg.QdrantURL,
			Prefix: cfg.QdrantPrefix,
		})
		if err != nil {
			return Clients{}, err
		}
		index = qi
	}

	mlClient := mlprovider.NewClient(log, mlprovider.Config{
		BaseURL:    cfg.MLProviderURL,
		APIKey:     cfg.MLProviderAPIKey,
		MaxRetries: cfg.MLProviderMaxRetries,
	})
	enc := encoders.NewManager(
		func() (encoders.ImageEmbedder, error) { return mlClient, nil },
		func() (encoders.ImageEmbedder, error) { return mlClient.DINO(), nil },
		func() (encoders.Captioner, error) { return mlClient, nil },
		func() (encoders.TextEmbedder, error) { return mlClient, nil },
		func() (encoders.CLIPTextEmbedder, error) { return mlClient, nil },
	)

	clients := Clients{Storage: store, Index: index, Enc: enc}

	tc, err := temporalx.NewClient(log)
	if err != nil {
		return Clients{}, err
	}
	clients.Temporal = tc

	if cfg.UseRedis {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, DialTimeout: 5 * time.Second})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, falling back to in-process limiter/hub", "error", err)
		} else {
			clients.Redis = rdb
			if b, err := bus.NewRedisBus(log); err != nil {
				log.Warn("redis bus init failed, job-progress events stay single-process", "error", err)
			} else {
				clients.Bus = b
			}
		}
	}

	return clients, nil
}
