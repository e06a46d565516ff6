package app

import (
	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	"github.com/pierdell/mediaforge-backend/internal/jobs/pipeline/clipembed"
	"github.com/pierdell/mediaforge-backend/internal/jobs/pipeline/dinoembed"
	"github.com/pierdell/mediaforge-backend/internal/jobs/pipeline/textembed"
	"github.com/pierdell/mediaforge-backend/internal/jobs/pipeline/trainingrun"
	"github.com/pierdell/mediaforge-backend/internal/jobs/pipeline/vlmcaption"
	"github.com/pierdell/mediaforge-backend/internal/jobs/runtime"
)

// wireRegistry registers every job pipeline handler by job_type, the
// one place job_type->code binding happens (internal/jobs/runtime.Registry
// doc comment).
func wireRegistry(r *repos.Repos, clients Clients) (*runtime.Registry, error) {
	reg := runtime.NewRegistry()
	handlers := []runtime.Handler{
		clipembed.New(r, clients.Storage, clients.Enc, clients.Index),
		dinoembed.New(r, clients.Storage, clients.Enc, clients.Index),
		textembed.New(r, clients.Enc, clients.Index),
		vlmcaption.New(r, clients.Storage, clients.Enc, clients.Index),
		trainingrun.New(r),
	}
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
