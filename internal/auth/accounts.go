package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"golang.org/x/text/unicode/norm"

	domainerrors "github.com/cinewatch/cinewatch/internal/errors"
)

const (
	accountPrefix     = "account:"
	currentSessionKey = "session:current"
)

// Account is a registered email/password credential.
type Account struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// AccountStore keeps accounts and the persisted session token in Badger.
type AccountStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenAccountStore opens (or creates) the account database at path.
func OpenAccountStore(path string, logger *slog.Logger) (*AccountStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open account db: %w", err)
	}

	logger.Info("account store opened", "path", path)
	return &AccountStore{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *AccountStore) Close() error {
	return s.db.Close()
}

// NormalizeEmail folds an address to its lookup form: NFC, trimmed, lower case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(email)))
}

func accountKey(email string) []byte {
	return []byte(accountPrefix + NormalizeEmail(email))
}

// Create stores a new account. It fails with ErrEmailInUse if the address is taken.
func (s *AccountStore) Create(ctx context.Context, acct *Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := accountKey(acct.Email)
		if _, err := txn.Get(key); err == nil {
			return domainerrors.EmailInUse("email already registered")
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	if errors.Is(err, badger.ErrConflict) {
		return domainerrors.EmailInUse("email already registered")
	}
	return err
}

// ByEmail looks up an account. It returns ErrNotFound if none exists.
func (s *AccountStore) ByEmail(ctx context.Context, email string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var acct Account
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(accountKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &acct)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domainerrors.NotFound("account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acct, nil
}

// SaveSession persists the current session token.
func (s *AccountStore) SaveSession(token string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(currentSessionKey), []byte(token))
	})
}

// LoadSession returns the persisted session token, or "" if there is none.
func (s *AccountStore) LoadSession() (string, error) {
	var token string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(currentSessionKey))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		token = string(val)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	return token, err
}

// ClearSession removes the persisted session token.
func (s *AccountStore) ClearSession() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(currentSessionKey))
	})
}
