package state

import (
	"context"
	"fmt"

	"github.com/cinewatch/cinewatch/internal/docstore"
	"github.com/cinewatch/cinewatch/internal/domain"
	"github.com/cinewatch/cinewatch/internal/sse"
)

// SessionHolder is the current identity plus whether the identity service
// has reported at least once.
type SessionHolder struct {
	identity *domain.Identity
	pending  bool
}

func newSessionHolder() SessionHolder {
	return SessionHolder{pending: true}
}

// Identity returns a copy of the identity, or nil.
func (h *SessionHolder) Identity() *domain.Identity {
	return h.identity.Clone()
}

// Pending reports whether no notification has arrived yet.
func (h *SessionHolder) Pending() bool {
	return h.pending
}

// apply records a notification and reports whether the user changed and
// whether this was the first notification.
func (h *SessionHolder) apply(identity *domain.Identity) (changed, first bool) {
	changed = !h.identity.Same(identity)
	first = h.pending
	h.identity = identity.Clone()
	h.pending = false
	return changed, first
}

// handleIdentity follows the identity service. A new user resets the
// profile and starts loading it; sign-out clears it.
func (s *Store) handleIdentity(identity *domain.Identity) {
	s.mu.Lock()
	changed, first := s.session.apply(identity)

	events := []sse.Event{sse.NewIdentityEvent(identity)}
	if first {
		events = append(events, sse.NewAuthResolvedEvent(false))
	}

	if !changed {
		if s.readiness == domain.ReadinessPending {
			s.readiness = domain.ReadinessSignedOut
			events = append(events, sse.NewReadinessEvent(s.readiness))
		}
		s.publishAndUnlock(events...)
		return
	}

	s.generation++
	events = append(events, s.resetProfileLocked()...)

	if identity == nil {
		s.readiness = domain.ReadinessSignedOut
		events = append(events, sse.NewReadinessEvent(s.readiness))
		s.publishAndUnlock(events...)
		s.logger.Info("signed out, profile cleared")
		return
	}

	gen := s.generation
	s.readiness = domain.ReadinessLoadingProfile
	events = append(events, sse.NewReadinessEvent(s.readiness))
	s.publishAndUnlock(events...)

	loaded := identity.Clone()
	s.goBackground(func() {
		ctx, cancel := s.remoteContext()
		defer cancel()
		s.LoadUserData(ctx, loaded)
		s.markReady(gen)
	})
}

// resetProfileLocked empties the in-memory collections and ranking. Caller holds mu.
func (s *Store) resetProfileLocked() []sse.Event {
	s.watchlist = []domain.TitleID{}
	s.viewed = []domain.TitleID{}
	s.ratings = map[domain.TitleID]int{}
	s.community = []domain.CommunityMovie{}
	clear(s.latestSeq)
	return []sse.Event{
		sse.NewWatchlistEvent(s.watchlist),
		sse.NewViewedEvent(s.viewed),
		sse.NewRatingsEvent(s.ratings),
		sse.NewCommunityEvent(s.community),
	}
}

func (s *Store) markReady(gen uint64) {
	s.mu.Lock()
	if s.generation != gen || s.readiness != domain.ReadinessLoadingProfile {
		s.mu.Unlock()
		return
	}
	s.readiness = domain.ReadinessReady
	s.publishAndUnlock(sse.NewReadinessEvent(s.readiness))
}

// SignIn authenticates. The profile load follows from the identity notification.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	identity, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	s.logger.Info("sign in succeeded", "uid", identity.UID)
	return nil
}

// SignUp creates an account and initializes its profile document.
func (s *Store) SignUp(ctx context.Context, email, password string) error {
	identity, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		return err
	}

	err = s.docs.Merge(ctx, identity.UID,
		docstore.Set(domain.FieldEmail, identity.Email),
		docstore.Set(domain.FieldWatchlist, []domain.TitleID{}),
		docstore.Set(domain.FieldViewed, []domain.TitleID{}),
		docstore.Set(domain.FieldRatings, map[domain.TitleID]int{}),
	)
	if err != nil {
		s.logger.Error("failed to initialize profile document", "uid", identity.UID, "error", err)
		return fmt.Errorf("initialize profile: %w", err)
	}
	return nil
}

// Logout signs out. The identity notification clears the in-memory profile;
// the remote document is untouched.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.auth.SignOut(ctx); err != nil {
		s.logger.Error("sign out failed", "error", err)
		return err
	}
	return nil
}
