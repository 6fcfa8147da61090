package state

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/cinewatch/cinewatch/internal/docstore"
	"github.com/cinewatch/cinewatch/internal/domain"
	"github.com/cinewatch/cinewatch/internal/sse"
)

// ToggleWatchlistItem adds or removes id from the watchlist.
func (s *Store) ToggleWatchlistItem(id domain.TitleID) *Commit {
	s.mu.Lock()
	s.watchlist = domain.ToggleTitle(s.watchlist, id)
	next := slices.Clone(s.watchlist)
	return s.applyLocked(domain.FieldWatchlist, next, sse.NewWatchlistEvent(next), nil)
}

// ToggleViewedStatus marks or unmarks id as viewed.
func (s *Store) ToggleViewedStatus(id domain.TitleID) *Commit {
	s.mu.Lock()
	s.viewed = domain.ToggleTitle(s.viewed, id)
	next := slices.Clone(s.viewed)
	return s.applyLocked(domain.FieldViewed, next, sse.NewViewedEvent(next), nil)
}

// SetRating records rating for id, replacing any earlier one. The value is
// not range checked here; the document store rejects out of range writes.
// Once the write is persisted the community ranking is refreshed.
func (s *Store) SetRating(id domain.TitleID, rating int) *Commit {
	s.mu.Lock()
	next := maps.Clone(s.ratings)
	next[id] = rating
	s.ratings = next
	value := maps.Clone(next)
	return s.applyLocked(domain.FieldRatings, value, sse.NewRatingsEvent(value), s.refreshCommunity)
}

// maxStaleRetries bounds how often a write rejected as stale is resequenced.
const maxStaleRetries = 3

// applyLocked publishes a change already made under mu, then writes the
// field to the signed-in user's document in the background. Caller holds mu.
func (s *Store) applyLocked(field domain.Field, value any, event sse.Event, onPersisted func()) *Commit {
	c := newCommit(value)
	uid, signedIn := s.signedInUID()
	seq := s.seq.next()
	s.latestSeq[field] = seq
	gen := s.generation
	s.publishAndUnlock(event)

	if !signedIn {
		c.finish(OutcomeSkipped, nil)
		return c
	}

	write := docstore.FieldWrite{Field: field, Value: value, Seq: seq}
	s.goBackground(func() {
		ctx, cancel := s.remoteContext()
		defer cancel()

		outcome, err := s.persist(ctx, uid, gen, write)
		switch outcome {
		case OutcomeFailed:
			s.logger.Error("remote write failed, keeping local change",
				"uid", uid,
				"field", field,
				"error", err)
			s.publish(sse.NewWriteFailedEvent(field, err))
			c.finish(OutcomeFailed, err)
		case OutcomeSuperseded:
			s.logger.Debug("remote write superseded by a newer local change", "uid", uid, "field", field)
			c.finish(OutcomeSuperseded, nil)
		default:
			s.logger.Debug("remote write persisted", "uid", uid, "field", field)
			c.finish(OutcomePersisted, nil)
			if onPersisted != nil {
				onPersisted()
			}
		}
	})
	return c
}

// persist merges w into the user's document. When the document already holds
// a newer sequence for the field, the sequencer is moved past it and the
// current local value is written again under a fresh sequence, unless a later
// local write of the field is in flight or the user changed.
func (s *Store) persist(ctx context.Context, uid string, gen uint64, w docstore.FieldWrite) (Outcome, error) {
	for attempt := 0; ; attempt++ {
		err := s.docs.Merge(ctx, uid, w)
		var stale *docstore.StaleWriteError
		if !errors.As(err, &stale) {
			if err != nil {
				return OutcomeFailed, err
			}
			return OutcomePersisted, nil
		}

		s.seq.observe(stale.Stored[w.Field])
		if attempt == maxStaleRetries {
			return OutcomeFailed, err
		}

		s.mu.Lock()
		if s.generation != gen {
			s.mu.Unlock()
			return OutcomeFailed, err
		}
		if s.latestSeq[w.Field] != w.Seq {
			s.mu.Unlock()
			return OutcomeSuperseded, nil
		}
		w.Seq = s.seq.next()
		w.Value = s.fieldValueLocked(w.Field)
		s.latestSeq[w.Field] = w.Seq
		s.mu.Unlock()

		s.logger.Debug("resequenced stale write",
			"uid", uid,
			"field", w.Field,
			"stored", stale.Stored[w.Field],
			"seq", w.Seq)
	}
}

// fieldValueLocked returns a copy of the local value of f. Caller holds mu.
func (s *Store) fieldValueLocked(f domain.Field) any {
	switch f {
	case domain.FieldWatchlist:
		return slices.Clone(s.watchlist)
	case domain.FieldViewed:
		return slices.Clone(s.viewed)
	default:
		return maps.Clone(s.ratings)
	}
}

// refreshCommunity recomputes the ranking in the background.
func (s *Store) refreshCommunity() {
	s.goBackground(func() {
		ctx, cancel := s.remoteContext()
		defer cancel()
		s.FetchCommunityTopTen(ctx)
	})
}
