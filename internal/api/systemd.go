package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/feedbackd/internal/api/models"
)

func (s *Server) registerSystemdRoutes() {
	if s.options.Systemd == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-service-status",
		Method:      http.MethodGet,
		Path:        "/api/system/service",
		Summary:     "Service Status",
		Description: "Get the daemon's systemd unit state",
		Tags:        []string{"system"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.ServiceStatusResponse, error) {
		status, err := s.options.Systemd.ServiceStatus(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to get service status", err)
		}
		return &models.ServiceStatusResponse{
			Body: models.ServiceStatusData{
				Service: s.options.Systemd.Unit(),
				Status:  status,
			},
		}, nil
	})
}
