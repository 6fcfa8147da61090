package state

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/cinewatch/cinewatch/internal/domain"
	domainerrors "github.com/cinewatch/cinewatch/internal/errors"
	"github.com/cinewatch/cinewatch/internal/sse"
)

// FetchCommunityTopTen recomputes the community ranking from every user's
// ratings and replaces the stored ranking. It does nothing while signed out.
// On scan failure the previous ranking is kept.
func (s *Store) FetchCommunityTopTen(ctx context.Context) {
	s.mu.Lock()
	_, signedIn := s.signedInUID()
	gen := s.generation
	s.mu.Unlock()
	if !signedIn {
		return
	}

	tally := newRatingTally()
	skipped := 0
	for doc, err := range s.docs.Scan(ctx) {
		if err != nil {
			if domainerrors.Is(err, domainerrors.ErrPermissionDenied) {
				s.logger.Debug("community scan not permitted", "error", err)
			} else {
				s.logger.Error("community scan failed, keeping previous ranking", "error", err)
			}
			return
		}
		entries, bad := doc.Ratings()
		skipped += bad
		for _, e := range entries {
			tally.add(e.Title, e.Value)
		}
	}
	if skipped > 0 {
		s.logger.Warn("skipped malformed ratings during community scan", "skipped", skipped)
	}

	ranked := tally.top(s.opts.TopN)
	s.hydrate(ctx, ranked)

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.logger.Debug("discarding community ranking computed for previous user")
		return
	}
	s.community = ranked
	s.publishAndUnlock(sse.NewCommunityEvent(ranked))
}

// ratingTally accumulates per-title sums in first-seen order.
type ratingTally struct {
	order []domain.TitleID
	sums  map[domain.TitleID]float64
	votes map[domain.TitleID]int
}

func newRatingTally() *ratingTally {
	return &ratingTally{
		sums:  make(map[domain.TitleID]float64),
		votes: make(map[domain.TitleID]int),
	}
}

func (t *ratingTally) add(id domain.TitleID, value float64) {
	if _, seen := t.votes[id]; !seen {
		t.order = append(t.order, id)
	}
	t.sums[id] += value
	t.votes[id]++
}

// top returns the n highest averages. Equal averages keep first-seen order.
func (t *ratingTally) top(n int) []domain.CommunityMovie {
	movies := make([]domain.CommunityMovie, 0, len(t.order))
	for _, id := range t.order {
		movies = append(movies, domain.CommunityMovie{
			ID:        id,
			AvgRating: t.sums[id] / float64(t.votes[id]),
			Votes:     t.votes[id],
		})
	}

	slices.SortStableFunc(movies, func(a, b domain.CommunityMovie) int {
		switch {
		case a.AvgRating > b.AvgRating:
			return -1
		case a.AvgRating < b.AvgRating:
			return 1
		default:
			return 0
		}
	})

	if len(movies) > n {
		movies = movies[:n]
	}
	return movies
}

// hydrate fills title and poster for each entry. A failed lookup leaves
// that entry unhydrated and does not affect the others.
func (s *Store) hydrate(ctx context.Context, movies []domain.CommunityMovie) {
	var g errgroup.Group
	g.SetLimit(s.opts.HydrateConcurrency)

	for i := range movies {
		g.Go(func() error {
			summary, err := s.catalog.Title(ctx, movies[i].ID)
			if err != nil {
				s.logger.Warn("failed to hydrate community title",
					"title_id", movies[i].ID,
					"error", err)
				return nil
			}
			movies[i].Title = summary.Title
			movies[i].PosterPath = summary.PosterPath
			movies[i].Hydrated = true
			return nil
		})
	}
	_ = g.Wait()
}
