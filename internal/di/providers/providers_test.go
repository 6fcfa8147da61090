package providers

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinewatch/cinewatch/internal/auth"
	"github.com/cinewatch/cinewatch/internal/config"
	"github.com/cinewatch/cinewatch/internal/docstore"
	"github.com/cinewatch/cinewatch/internal/domain"
	"github.com/cinewatch/cinewatch/internal/logger"
)

func newTestInjector(t *testing.T) *do.RootScope {
	t.Helper()

	cfg := &config.Config{
		App:       config.AppConfig{Environment: "development"},
		Logger:    config.LoggerConfig{Level: "debug"},
		Data:      config.DataConfig{BasePath: t.TempDir()},
		Catalog:   config.CatalogConfig{APIKey: "test-key", BaseURL: "http://127.0.0.1:1", RPS: 10, Burst: 1},
		Community: config.CommunityConfig{TopN: 10, HydrateConcurrency: 2},
		Sync:      config.SyncConfig{RemoteWriteTimeout: time.Second},
		Auth:      config.AuthConfig{SessionDuration: time.Hour},
	}

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger.New(logger.Config{Writer: &bytes.Buffer{}, Format: "json"}))

	do.Provide(injector, ProvideAuthKey)
	do.Provide(injector, ProvideTokenService)
	do.Provide(injector, ProvideAccountStore)
	do.Provide(injector, ProvideIdentityProvider)
	do.Provide(injector, ProvideSSEManager)
	do.Provide(injector, ProvideDocumentStore)
	do.Provide(injector, ProvideGuardedStore)
	do.Provide(injector, ProvideCatalog)
	do.Provide(injector, ProvideStateStore)

	t.Cleanup(func() { _ = injector.Shutdown() })
	return injector
}

func TestProvideAuthKey_StoresKeyOnConfig(t *testing.T) {
	injector := newTestInjector(t)

	key := do.MustInvoke[AuthKey](injector)
	cfg := do.MustInvoke[*config.Config](injector)

	assert.Len(t, key, 32)
	assert.Equal(t, []byte(key), cfg.Auth.SessionKey)
}

func TestStateStore_FollowsRestoredSession(t *testing.T) {
	injector := newTestInjector(t)

	handle := do.MustInvoke[*StateStoreHandle](injector)
	assert.True(t, handle.Pending())

	RestoreSession(injector)

	assert.False(t, handle.Pending())
	assert.Nil(t, handle.Identity())
	assert.Equal(t, domain.ReadinessSignedOut, handle.Readiness())
}

func TestStateStore_SignUpPersistsThroughGuard(t *testing.T) {
	injector := newTestInjector(t)

	handle := do.MustInvoke[*StateStoreHandle](injector)
	provider := do.MustInvoke[*auth.Provider](injector)
	docs := do.MustInvoke[*docstore.Guarded](injector)
	RestoreSession(injector)

	ctx := context.Background()
	require.NoError(t, handle.SignUp(ctx, "ana@example.com", "secret1"))

	uid, ok := provider.CurrentUID()
	require.True(t, ok)
	assert.Equal(t, uid, handle.Identity().UID)

	commit := handle.ToggleWatchlistItem(550)
	outcome, err := commit.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", outcome.String())

	doc, err := docs.Get(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, []domain.TitleID{550}, doc.Profile().Watchlist)
}
