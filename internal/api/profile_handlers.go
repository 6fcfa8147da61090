package api

import (
	"net/http"
	"strconv"

	"github.com/cinewatch/cinewatch/internal/color"
	"github.com/cinewatch/cinewatch/internal/domain"
	"github.com/cinewatch/cinewatch/internal/http/response"
	"github.com/cinewatch/cinewatch/internal/state"
)

// CommitResponse reports a mutation: the value applied locally and how far
// the remote write has got.
type CommitResponse struct {
	Value   any    `json:"value"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// SetRatingRequest is the body of PUT /ratings/{id}.
type SetRatingRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

// writeCommit responds with the commit. With ?wait=true it waits for the
// remote write first, bounded by the request context.
func (s *Server) writeCommit(w http.ResponseWriter, r *http.Request, c *state.Commit) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		_, _ = c.Wait(r.Context())
	}

	resp := CommitResponse{Value: c.Value, Outcome: c.Outcome().String()}
	if err := c.Err(); err != nil {
		resp.Error = err.Error()
	}
	response.Success(w, resp, s.logger)
}

// handleGetState returns the whole observable state.
func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.state.Snapshot(), s.logger)
}

func (s *Server) handleGetWatchlist(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.state.Watchlist(), s.logger)
}

// handleWatchlistDetails returns catalog metadata for the watchlist.
func (s *Server) handleWatchlistDetails(w http.ResponseWriter, r *http.Request) {
	response.Success(w, s.state.WatchlistDetails(r.Context()), s.logger)
}

func (s *Server) handleToggleWatchlist(w http.ResponseWriter, r *http.Request) {
	id, err := titleIDParam(r)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	s.writeCommit(w, r, s.state.ToggleWatchlistItem(id))
}

func (s *Server) handleGetViewed(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.state.Viewed(), s.logger)
}

func (s *Server) handleToggleViewed(w http.ResponseWriter, r *http.Request) {
	id, err := titleIDParam(r)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	s.writeCommit(w, r, s.state.ToggleViewedStatus(id))
}

func (s *Server) handleGetRatings(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.state.Ratings(), s.logger)
}

// handleSetRating validates the rating before it reaches the store.
func (s *Server) handleSetRating(w http.ResponseWriter, r *http.Request) {
	id, err := titleIDParam(r)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	var req SetRatingRequest
	if err := s.decodeBody(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	s.writeCommit(w, r, s.state.SetRating(id, req.Rating))
}

// ProfileResponse describes the signed-in user.
type ProfileResponse struct {
	UID         string              `json:"uid"`
	Email       string              `json:"email"`
	AvatarColor string              `json:"avatarColor"`
	Stats       domain.ProfileStats `json:"stats"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, _ *http.Request) {
	identity := s.state.Identity()
	if identity == nil {
		response.Unauthorized(w, "Not signed in", s.logger)
		return
	}
	response.Success(w, ProfileResponse{
		UID:         identity.UID,
		Email:       identity.Email,
		AvatarColor: color.ForUID(identity.UID),
		Stats:       s.state.Stats(),
	}, s.logger)
}

func (s *Server) handleProfileStats(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.state.Stats(), s.logger)
}

func (s *Server) handleGetCommunity(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.state.CommunityTopMovies(), s.logger)
}

// handleRefreshCommunity recomputes the ranking and returns it.
func (s *Server) handleRefreshCommunity(w http.ResponseWriter, r *http.Request) {
	s.state.FetchCommunityTopTen(r.Context())
	response.Success(w, s.state.CommunityTopMovies(), s.logger)
}
