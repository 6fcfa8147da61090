package state

import (
	"context"

	"github.com/cinewatch/cinewatch/internal/domain"
	domainerrors "github.com/cinewatch/cinewatch/internal/errors"
	"github.com/cinewatch/cinewatch/internal/sse"
)

// LoadUserData replaces the in-memory collections with the user's document.
// A missing document leaves them as they are. Errors are logged only.
// The result is dropped if identity is no longer the signed-in user.
func (s *Store) LoadUserData(ctx context.Context, identity *domain.Identity) {
	if identity == nil {
		return
	}

	doc, err := s.docs.Get(ctx, identity.UID)
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		s.logger.Debug("no profile document yet", "uid", identity.UID)
		return
	}
	if err != nil {
		s.logger.Error("failed to load profile", "uid", identity.UID, "error", err)
		return
	}

	profile := doc.Profile()
	for _, seq := range doc.Seq {
		s.seq.observe(seq)
	}

	s.mu.Lock()
	if !s.session.identity.Same(identity) {
		s.mu.Unlock()
		s.logger.Debug("discarding profile of previous user", "uid", identity.UID)
		return
	}
	s.watchlist = profile.Watchlist
	s.viewed = profile.Viewed
	s.ratings = profile.Ratings
	s.publishAndUnlock(
		sse.NewWatchlistEvent(profile.Watchlist),
		sse.NewViewedEvent(profile.Viewed),
		sse.NewRatingsEvent(profile.Ratings),
	)

	s.logger.Info("profile loaded",
		"uid", identity.UID,
		"watchlist", len(profile.Watchlist),
		"viewed", len(profile.Viewed),
		"ratings", len(profile.Ratings))
}
