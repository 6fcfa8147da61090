package state

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/cinewatch/cinewatch/internal/domain"
)

// WatchlistDetails fetches catalog metadata for every watchlist title.
// Titles whose lookup fails or that have no poster are left out; the rest
// keep watchlist order.
func (s *Store) WatchlistDetails(ctx context.Context) []domain.TitleSummary {
	ids := s.Watchlist()
	results := make([]*domain.TitleSummary, len(ids))

	var g errgroup.Group
	g.SetLimit(s.opts.HydrateConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			summary, err := s.catalog.Title(ctx, id)
			if err != nil {
				s.logger.Warn("failed to fetch watchlist title", "title_id", id, "error", err)
				return nil
			}
			results[i] = summary
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.TitleSummary, 0, len(ids))
	for _, r := range results {
		if r.HasPoster() {
			out = append(out, *r)
		}
	}
	return out
}
