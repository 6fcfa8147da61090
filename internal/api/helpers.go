package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/cinewatch/cinewatch/internal/catalog"
	"github.com/cinewatch/cinewatch/internal/domain"
	domainerrors "github.com/cinewatch/cinewatch/internal/errors"
	"github.com/cinewatch/cinewatch/internal/http/response"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// titleIDParam parses the {id} path segment.
func titleIDParam(r *http.Request) (domain.TitleID, error) {
	raw := chi.URLParam(r, "id")
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, domainerrors.Validationf("invalid title id %q", raw)
	}
	return domain.TitleID(n), nil
}

// decodeBody decodes a JSON request body into dst and validates it.
func (s *Server) decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domainerrors.Validation("request body must be valid JSON").WithCause(err)
	}
	return s.validate.Validate(dst)
}

// handleCatalogError maps catalog failures onto HTTP responses.
func (s *Server) handleCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		response.NotFound(w, "title not found", s.logger)
	case errors.Is(err, catalog.ErrBadRequest):
		response.BadRequest(w, "invalid catalog request", s.logger)
	case errors.Is(err, catalog.ErrCircuitOpen), errors.Is(err, catalog.ErrRateLimited):
		s.logger.Warn("catalog temporarily unavailable", "error", err)
		response.Error(w, http.StatusServiceUnavailable, "catalog temporarily unavailable", s.logger)
	default:
		s.logger.Error("catalog request failed", "error", err)
		response.BadGateway(w, "catalog request failed", s.logger)
	}
}
