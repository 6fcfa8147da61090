package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/cinewatch/cinewatch/internal/auth"
	"github.com/cinewatch/cinewatch/internal/config"
	"github.com/cinewatch/cinewatch/internal/docstore"
	"github.com/cinewatch/cinewatch/internal/logger"
	"github.com/cinewatch/cinewatch/internal/sse"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.WithComponent("sse").Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// DocumentStoreHandle wraps the badger document store with shutdown capability.
type DocumentStoreHandle struct {
	*docstore.Badger
}

// Shutdown implements do.Shutdownable.
func (h *DocumentStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideDocumentStore opens the profile document database.
func ProvideDocumentStore(i do.Injector) (*DocumentStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := docstore.OpenBadger(cfg.Data.DocumentsPath(), log.WithComponent("docstore").Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Document store opened", "path", cfg.Data.DocumentsPath())

	return &DocumentStoreHandle{Badger: db}, nil
}

// ProvideGuardedStore puts the document access rules in front of the
// document store, keyed on the identity service's signed-in user.
func ProvideGuardedStore(i do.Injector) (*docstore.Guarded, error) {
	db := do.MustInvoke[*DocumentStoreHandle](i)
	provider := do.MustInvoke[*auth.Provider](i)

	return docstore.NewGuarded(db.Badger, provider), nil
}
