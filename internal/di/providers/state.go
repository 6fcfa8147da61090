package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/cinewatch/cinewatch/internal/auth"
	"github.com/cinewatch/cinewatch/internal/config"
	"github.com/cinewatch/cinewatch/internal/docstore"
	"github.com/cinewatch/cinewatch/internal/logger"
	"github.com/cinewatch/cinewatch/internal/state"
)

// StateStoreHandle wraps the state store with shutdown capability.
type StateStoreHandle struct {
	*state.Store
}

// Shutdown implements do.Shutdownable. It waits for pending remote writes.
func (h *StateStoreHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Close(ctx)
}

// ProvideStateStore provides the watchlist state store and starts it
// following the identity service.
func ProvideStateStore(i do.Injector) (*StateStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	docs := do.MustInvoke[*docstore.Guarded](i)
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	provider := do.MustInvoke[*auth.Provider](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	store := state.New(docs, catalogHandle.Client, provider, sseHandle.Manager, state.Options{
		TopN:               cfg.Community.TopN,
		HydrateConcurrency: cfg.Community.HydrateConcurrency,
		RemoteTimeout:      cfg.Sync.RemoteWriteTimeout,
	}, log.WithComponent("state").Logger)
	store.Start()

	log.Info("State store started",
		"community_top_n", cfg.Community.TopN,
		"remote_write_timeout", cfg.Sync.RemoteWriteTimeout,
	)

	return &StateStoreHandle{Store: store}, nil
}
