package api

import (
	"net/http"
	"strconv"

	"github.com/cinewatch/cinewatch/internal/http/response"
)

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Readiness  string                     `json:"readiness"`
	Components map[string]ComponentHealth `json:"components"`
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, HealthResponse{
		Status:    "healthy",
		Readiness: string(s.state.Readiness()),
		Components: map[string]ComponentHealth{
			"sse": s.checkSSEManager(),
		},
	}, s.logger)
}

// checkSSEManager reports connected stream clients.
func (s *Server) checkSSEManager() ComponentHealth {
	if s.sseManager == nil {
		return ComponentHealth{Status: "degraded", Message: "SSE manager not configured"}
	}

	switch count := s.sseManager.ClientCount(); count {
	case 0:
		return ComponentHealth{Status: "healthy", Message: "no connected clients"}
	case 1:
		return ComponentHealth{Status: "healthy", Message: "1 connected client"}
	default:
		return ComponentHealth{Status: "healthy", Message: strconv.Itoa(count) + " connected clients"}
	}
}
