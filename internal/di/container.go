// Package di provides dependency injection configuration for the CineWatch server.
package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/cinewatch/cinewatch/internal/auth"
	"github.com/cinewatch/cinewatch/internal/config"
	"github.com/cinewatch/cinewatch/internal/di/providers"
	"github.com/cinewatch/cinewatch/internal/docstore"
	"github.com/cinewatch/cinewatch/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Identity
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideAccountStore)
	do.Provide(injector, providers.ProvideIdentityProvider)

	// Storage and events
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideDocumentStore)
	do.Provide(injector, providers.ProvideGuardedStore)

	// Catalog and state
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideStateStore)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services. The state store subscribes to the
// identity service before the persisted session is restored, so the first
// identity notification is never missed.
func Bootstrap(injector *do.RootScope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bootstrap: %v", r)
		}
	}()

	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*providers.AccountStoreHandle](injector)
	_ = do.MustInvoke[*auth.Provider](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.DocumentStoreHandle](injector)
	_ = do.MustInvoke[*docstore.Guarded](injector)
	_ = do.MustInvoke[*providers.CatalogHandle](injector)
	_ = do.MustInvoke[*providers.StateStoreHandle](injector)

	providers.RestoreSession(injector)

	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
