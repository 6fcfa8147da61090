package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/text/unicode/norm"

	"github.com/cinewatch/cinewatch/internal/domain"
)

// maxRecommendations caps the recommendation list.
const maxRecommendations = 10

// normalizeQuery trims and NFC-normalizes a search query.
func normalizeQuery(q string) string {
	return strings.TrimSpace(norm.NFC.String(q))
}

// Search runs a multi search and keeps movies and TV shows that have a poster.
// A blank query returns an empty result without calling the API.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	q := normalizeQuery(query)
	if q == "" {
		return []SearchResult{}, nil
	}

	params := url.Values{}
	params.Set("query", q)

	page, err := c.getPage(ctx, "/search/multi", params)
	if err != nil {
		return nil, wrapError("search", 0, err)
	}

	return c.posterResults(page.Results, 0, func(r *rawResult) bool {
		return r.MediaType == MediaMovie || r.MediaType == MediaTV
	}), nil
}

// Trending returns this week's trending movies that have a poster.
func (c *Client) Trending(ctx context.Context) ([]SearchResult, error) {
	page, err := c.getPage(ctx, "/trending/movie/week", nil)
	if err != nil {
		return nil, wrapError("trending", 0, err)
	}
	return c.posterResults(page.Results, 0, asMovie), nil
}

// Recommendations returns up to ten recommended movies with posters.
func (c *Client) Recommendations(ctx context.Context, id domain.TitleID) ([]SearchResult, error) {
	page, err := c.getPage(ctx, "/movie/"+strconv.Itoa(int(id))+"/recommendations", nil)
	if err != nil {
		return nil, wrapError("recommendations", id, err)
	}
	return c.posterResults(page.Results, maxRecommendations, asMovie), nil
}

// MovieDetails fetches a movie with its credits and videos.
func (c *Client) MovieDetails(ctx context.Context, id domain.TitleID) (*MovieDetails, error) {
	params := url.Values{}
	params.Set("append_to_response", "credits,videos")

	raw, err := c.getMovie(ctx, id, params)
	if err != nil {
		return nil, wrapError("movie", id, err)
	}

	genres := make([]string, 0, len(raw.Genres))
	for _, g := range raw.Genres {
		genres = append(genres, g.Name)
	}

	return &MovieDetails{
		ID:          domain.TitleID(raw.ID),
		Title:       raw.Title,
		Overview:    raw.Overview,
		Tagline:     raw.Tagline,
		PosterPath:  raw.PosterPath,
		PosterURL:   c.PosterURL(raw.PosterPath, c.opts.PosterSize),
		ReleaseDate: raw.ReleaseDate,
		ReleaseYear: releaseYear(raw.ReleaseDate),
		Runtime:     raw.Runtime,
		VoteAverage: raw.VoteAverage,
		Genres:      genres,
		Director:    raw.director(),
		Cast:        raw.topCast(topCastSize),
		TrailerKey:  raw.trailerKey(),
	}, nil
}

// Title fetches the list metadata for one movie.
func (c *Client) Title(ctx context.Context, id domain.TitleID) (*domain.TitleSummary, error) {
	raw, err := c.getMovie(ctx, id, nil)
	if err != nil {
		return nil, wrapError("title", id, err)
	}
	return &domain.TitleSummary{
		ID:         id,
		Title:      raw.Title,
		PosterPath: raw.PosterPath,
	}, nil
}

func (c *Client) getPage(ctx context.Context, path string, params url.Values) (*rawPage, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	var page rawPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &page, nil
}

func (c *Client) getMovie(ctx context.Context, id domain.TitleID, params url.Values) (*rawMovie, error) {
	if id <= 0 {
		return nil, ErrBadRequest
	}
	body, err := c.get(ctx, "/movie/"+strconv.Itoa(int(id)), params)
	if err != nil {
		return nil, err
	}
	var movie rawMovie
	if err := json.Unmarshal(body, &movie); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &movie, nil
}

// asMovie tags endpoint results that omit media_type.
func asMovie(r *rawResult) bool {
	if r.MediaType == "" {
		r.MediaType = MediaMovie
	}
	return r.MediaType == MediaMovie
}

// posterResults filters raw hits with keep, drops poster-less ones and stops at limit (0 = no limit).
func (c *Client) posterResults(raw []rawResult, limit int, keep func(*rawResult) bool) []SearchResult {
	out := make([]SearchResult, 0, len(raw))
	for i := range raw {
		r := &raw[i]
		if !keep(r) || r.PosterPath == "" {
			continue
		}
		out = append(out, SearchResult{
			ID:          domain.TitleID(r.ID),
			MediaType:   r.MediaType,
			Title:       r.displayTitle(),
			PosterPath:  r.PosterPath,
			PosterURL:   c.ListPosterURL(r.PosterPath),
			ReleaseDate: r.releaseDate(),
			Overview:    r.Overview,
			VoteAverage: r.VoteAverage,
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
