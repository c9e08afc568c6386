package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
)

// healthProbeUser is fetched to check that the store answers. It is not a
// valid username, so the fetch always misses.
const healthProbeUser = " health probe "

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health with a store check",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes one component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"healthy or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse is the health payload.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	store := s.checkStore(ctx)
	overall := "healthy"
	if store.Status != "healthy" {
		overall = "unhealthy"
	}
	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: map[string]ComponentHealth{"store": store},
		},
	}, nil
}

func (s *Server) checkStore(ctx context.Context) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	_, err := s.store.FetchDocument(ctx, healthProbeUser)
	latency := time.Since(start)

	if err != nil && !domainerrors.Is(err, domainerrors.ErrNotFound) {
		s.logger.Warn("store health check failed", "error", err)
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "store read failed",
		}
	}
	return ComponentHealth{Status: "healthy", Latency: latency.String()}
}
