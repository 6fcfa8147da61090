package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/cinewatch/cinewatch/internal/auth"
	"github.com/cinewatch/cinewatch/internal/config"
	"github.com/cinewatch/cinewatch/internal/logger"
)

// AuthKey wraps the session signing key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the session signing key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	cfg.Auth.SessionKey = key

	log.Info("Session key loaded", "session_duration", cfg.Auth.SessionDuration)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO session token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.SessionDuration)
}

// AccountStoreHandle wraps the account store with shutdown capability.
type AccountStoreHandle struct {
	*auth.AccountStore
}

// Shutdown implements do.Shutdownable.
func (h *AccountStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideAccountStore opens the account and session database.
func ProvideAccountStore(i do.Injector) (*AccountStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	accounts, err := auth.OpenAccountStore(cfg.Data.AccountsPath(), log.WithComponent("accounts").Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Account store opened", "path", cfg.Data.AccountsPath())

	return &AccountStoreHandle{AccountStore: accounts}, nil
}

// ProvideIdentityProvider provides the identity service.
func ProvideIdentityProvider(i do.Injector) (*auth.Provider, error) {
	log := do.MustInvoke[*logger.Logger](i)
	accounts := do.MustInvoke[*AccountStoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)

	return auth.NewProvider(accounts.AccountStore, tokens, log.WithComponent("auth").Logger), nil
}

// RestoreSession resolves the persisted session. Listeners registered
// before this call observe the first identity notification.
func RestoreSession(i do.Injector) {
	log := do.MustInvoke[*logger.Logger](i)
	provider := do.MustInvoke[*auth.Provider](i)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := provider.Restore(ctx); err != nil {
		log.Warn("Failed to restore session, starting signed out", "error", err)
	}
}
