package api

import (
	"net/http"

	"github.com/cinewatch/cinewatch/internal/http/response"
)

// handleSearch runs a multi search. A blank query yields an empty list.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.handleCatalogError(w, err)
		return
	}
	response.Success(w, results, s.logger)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	results, err := s.catalog.Trending(r.Context())
	if err != nil {
		s.handleCatalogError(w, err)
		return
	}
	response.Success(w, results, s.logger)
}

// MovieResponse is a movie's details plus the user's relation to it.
type MovieResponse struct {
	Movie       any  `json:"movie"`
	InWatchlist bool `json:"inWatchlist"`
	Viewed      bool `json:"viewed"`
	UserRating  int  `json:"userRating,omitempty"`
}

func (s *Server) handleMovieDetails(w http.ResponseWriter, r *http.Request) {
	id, err := titleIDParam(r)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	movie, err := s.catalog.MovieDetails(r.Context(), id)
	if err != nil {
		s.handleCatalogError(w, err)
		return
	}

	rating, _ := s.state.Rating(id)
	response.Success(w, MovieResponse{
		Movie:       movie,
		InWatchlist: s.state.InWatchlist(id),
		Viewed:      s.state.IsViewed(id),
		UserRating:  rating,
	}, s.logger)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	id, err := titleIDParam(r)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	results, err := s.catalog.Recommendations(r.Context(), id)
	if err != nil {
		s.handleCatalogError(w, err)
		return
	}
	response.Success(w, results, s.logger)
}
