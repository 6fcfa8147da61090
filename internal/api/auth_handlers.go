package api

import (
	"net/http"

	"github.com/cinewatch/cinewatch/internal/http/response"
)

// CredentialsRequest is the body of sign-in and sign-up.
// Field rules are enforced by the identity service so that it can choose the message.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) readCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := s.decodeBody(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return req, false
	}
	return req, true
}

// handleSignIn authenticates and returns the new state.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readCredentials(w, r)
	if !ok {
		return
	}
	if err := s.state.SignIn(r.Context(), req.Email, req.Password); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, s.state.Snapshot(), s.logger)
}

// handleSignUp creates an account and returns the new state.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readCredentials(w, r)
	if !ok {
		return
	}
	if err := s.state.SignUp(r.Context(), req.Email, req.Password); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.JSON(w, http.StatusCreated, s.state.Snapshot(), s.logger)
}

// handleSignOut ends the session.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.state.Logout(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
