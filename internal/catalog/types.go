package catalog

import (
	"slices"
	"strings"

	"github.com/cinewatch/cinewatch/internal/domain"
)

// MediaType is the kind of a multi-search hit.
type MediaType string

// Media types returned by the catalog.
const (
	MediaMovie  MediaType = "movie"
	MediaTV     MediaType = "tv"
	MediaPerson MediaType = "person"
)

// SearchResult is a movie or TV show suitable for a poster list.
type SearchResult struct {
	ID          domain.TitleID `json:"id"`
	MediaType   MediaType      `json:"media_type"`
	Title       string         `json:"title"`
	PosterPath  string         `json:"poster_path"`
	PosterURL   string         `json:"poster_url"`
	ReleaseDate string         `json:"release_date,omitempty"`
	Overview    string         `json:"overview,omitempty"`
	VoteAverage float64        `json:"vote_average"`
}

// CastMember is one credited actor.
type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path,omitempty"`
	Order       int    `json:"order"`
}

// MovieDetails is the detail view of a single movie.
type MovieDetails struct {
	ID          domain.TitleID `json:"id"`
	Title       string         `json:"title"`
	Overview    string         `json:"overview"`
	Tagline     string         `json:"tagline,omitempty"`
	PosterPath  string         `json:"poster_path"`
	PosterURL   string         `json:"poster_url"`
	ReleaseDate string         `json:"release_date,omitempty"`
	ReleaseYear string         `json:"release_year,omitempty"`
	Runtime     int            `json:"runtime"`
	VoteAverage float64        `json:"vote_average"`
	Genres      []string       `json:"genres"`
	Director    string         `json:"director,omitempty"`
	Cast        []CastMember   `json:"cast"`
	TrailerKey  string         `json:"trailer_key,omitempty"`
}

// topCastSize is how many cast members a detail view shows.
const topCastSize = 5

// Raw API response types (internal)

type rawResult struct {
	ID           int       `json:"id"`
	MediaType    MediaType `json:"media_type"`
	Title        string    `json:"title"`
	Name         string    `json:"name"`
	PosterPath   string    `json:"poster_path"`
	ReleaseDate  string    `json:"release_date"`
	FirstAirDate string    `json:"first_air_date"`
	Overview     string    `json:"overview"`
	VoteAverage  float64   `json:"vote_average"`
}

type rawPage struct {
	Page    int         `json:"page"`
	Results []rawResult `json:"results"`
}

type rawMovie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	Tagline     string  `json:"tagline"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	Runtime     int     `json:"runtime"`
	VoteAverage float64 `json:"vote_average"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Credits *struct {
		Cast []CastMember `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
	Videos *struct {
		Results []struct {
			Key  string `json:"key"`
			Site string `json:"site"`
			Type string `json:"type"`
		} `json:"results"`
	} `json:"videos"`
}

func (r *rawResult) displayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

func (r *rawResult) releaseDate() string {
	if r.ReleaseDate != "" {
		return r.ReleaseDate
	}
	return r.FirstAirDate
}

// director is the first crew member with the Director job.
func (m *rawMovie) director() string {
	if m.Credits == nil {
		return ""
	}
	for _, c := range m.Credits.Crew {
		if c.Job == "Director" {
			return c.Name
		}
	}
	return ""
}

// trailerKey is the first YouTube trailer's video key.
func (m *rawMovie) trailerKey() string {
	if m.Videos == nil {
		return ""
	}
	for _, v := range m.Videos.Results {
		if v.Site == "YouTube" && v.Type == "Trailer" {
			return v.Key
		}
	}
	return ""
}

func (m *rawMovie) topCast(n int) []CastMember {
	if m.Credits == nil {
		return []CastMember{}
	}
	cast := slices.Clone(m.Credits.Cast)
	slices.SortStableFunc(cast, func(a, b CastMember) int { return a.Order - b.Order })
	if len(cast) > n {
		cast = cast[:n]
	}
	return cast
}

func releaseYear(date string) string {
	if len(date) < 4 {
		return ""
	}
	year := date[:4]
	if strings.Trim(year, "0123456789") != "" {
		return ""
	}
	return year
}
