package auth

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cinewatch/cinewatch/internal/domain"
	domainerrors "github.com/cinewatch/cinewatch/internal/errors"
	"github.com/cinewatch/cinewatch/internal/id"
	"github.com/cinewatch/cinewatch/internal/validation"
)

// MessageFillAllFields is returned when a credential form has an empty field.
const MessageFillAllFields = "Please fill in all fields"

type signUpForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=1024"`
}

type signInForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=1024"`
}

// IdentityListener receives the new identity, or nil after sign-out.
type IdentityListener func(identity *domain.Identity)

type registeredListener struct {
	id int
	fn IdentityListener
}

// Provider is the identity service. It notifies listeners on every sign-in,
// sign-out and session restore.
//
// Listeners run synchronously in registration order. A listener must not call
// SignIn, SignUp, SignOut or Restore from inside the callback.
type Provider struct {
	accounts *AccountStore
	tokens   *TokenService
	validate *validation.Validator
	logger   *slog.Logger

	// notifyMu serializes identity changes with their notifications.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	current   *domain.Identity
	resolved  bool
	listeners []registeredListener
	nextID    int
}

// NewProvider creates an identity provider.
func NewProvider(accounts *AccountStore, tokens *TokenService, logger *slog.Logger) *Provider {
	return &Provider{
		accounts: accounts,
		tokens:   tokens,
		validate: validation.New(),
		logger:   logger,
	}
}

// OnIdentityChanged registers fn. If the provider has already resolved an
// identity (or its absence), fn is called with it before this returns.
func (p *Provider) OnIdentityChanged(fn IdentityListener) (unsubscribe func()) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	key := p.nextID
	p.nextID++
	p.listeners = append(p.listeners, registeredListener{id: key, fn: fn})
	resolved, current := p.resolved, p.current.Clone()
	p.mu.Unlock()

	if resolved {
		fn(current)
	}

	return func() {
		p.mu.Lock()
		p.listeners = slices.DeleteFunc(p.listeners, func(l registeredListener) bool { return l.id == key })
		p.mu.Unlock()
	}
}

// CurrentUID returns the signed-in user's uid.
func (p *Provider) CurrentUID() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return "", false
	}
	return p.current.UID, true
}

// Current returns a copy of the signed-in identity, or nil.
func (p *Provider) Current() *domain.Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.Clone()
}

// Restore resolves the persisted session on launch. An expired or unreadable
// session resolves to signed out. It always produces exactly one notification.
func (p *Provider) Restore(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	token, err := p.accounts.LoadSession()
	if err != nil {
		p.setIdentity(nil)
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "load session")
	}
	if token == "" {
		p.setIdentity(nil)
		return nil
	}

	claims, err := p.tokens.Verify(token)
	if err != nil {
		p.logger.Info("discarding persisted session", "error", err)
		if clearErr := p.accounts.ClearSession(); clearErr != nil {
			p.logger.Warn("failed to clear session", "error", clearErr)
		}
		p.setIdentity(nil)
		return nil
	}

	p.logger.Info("session restored", "uid", claims.UID)
	p.setIdentity(claims.Identity())
	return nil
}

// SignIn authenticates with email and password.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*domain.Identity, error) {
	form := signInForm{Email: strings.TrimSpace(email), Password: password}
	if err := p.checkForm(form); err != nil {
		return nil, err
	}

	acct, err := p.accounts.ByEmail(ctx, form.Email)
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		return nil, domainerrors.InvalidCredentials("unknown email")
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "sign in")
	}
	if !VerifyPassword(acct.PasswordHash, password) {
		return nil, domainerrors.InvalidCredentials("wrong password")
	}

	identity := &domain.Identity{UID: acct.UID, Email: acct.Email}
	if err := p.startSession(identity); err != nil {
		return nil, err
	}

	p.logger.Info("signed in", "uid", identity.UID)
	return identity.Clone(), nil
}

// SignUp creates an account and signs it in.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*domain.Identity, error) {
	form := signUpForm{Email: strings.TrimSpace(email), Password: password}
	if err := p.checkForm(form); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "hash password")
	}

	uid, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate uid")
	}

	acct := &Account{
		UID:          uid,
		Email:        form.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.accounts.Create(ctx, acct); err != nil {
		if domainerrors.Is(err, domainerrors.ErrEmailInUse) {
			return nil, err
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "create account")
	}

	identity := &domain.Identity{UID: uid, Email: acct.Email}
	if err := p.startSession(identity); err != nil {
		return nil, err
	}

	p.logger.Info("account created", "uid", uid)
	return identity.Clone(), nil
}

// SignOut ends the session and notifies listeners with nil.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := p.accounts.ClearSession()
	p.setIdentity(nil)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "clear session")
	}
	return nil
}

func (p *Provider) startSession(identity *domain.Identity) error {
	token, err := p.tokens.Issue(identity)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "issue session token")
	}
	if err := p.accounts.SaveSession(token); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "save session")
	}
	p.setIdentity(identity)
	return nil
}

// checkForm maps validator failures onto the auth error codes.
// Empty fields take precedence over format problems.
func (p *Provider) checkForm(form any) error {
	violations := p.validate.Violations(form)
	if len(violations) == 0 {
		return nil
	}

	for _, v := range violations {
		if v.Tag == "required" {
			return domainerrors.Validation(MessageFillAllFields)
		}
	}
	for _, v := range violations {
		switch {
		case v.Field == "email":
			return domainerrors.InvalidEmail("email " + v.Message)
		case v.Field == "password" && v.Tag == "min":
			return domainerrors.WeakPassword("password " + v.Message)
		}
	}
	return domainerrors.Validationf("%s %s", violations[0].Field, violations[0].Message)
}

func (p *Provider) setIdentity(identity *domain.Identity) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	p.current = identity.Clone()
	p.resolved = true
	listeners := make([]IdentityListener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l.fn)
	}
	p.mu.Unlock()

	for _, l := range listeners {
		l(identity.Clone())
	}
}
