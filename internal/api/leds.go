package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/feedbackd/internal/api/models"
	"github.com/smazurov/feedbackd/internal/led"
)

func (s *Server) registerLEDRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-leds",
		Method:      http.MethodGet,
		Path:        "/api/leds",
		Summary:     "List LEDs",
		Description: "List the probed LEDs in selection order. Empty when no usable LED was found.",
		Tags:        []string{"leds"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.LEDListResponse, error) {
		var devices []led.Device
		if s.options.LEDs != nil {
			devices = s.options.LEDs.Devices()
		}

		infos := make([]models.LEDInfo, 0, len(devices))
		for _, d := range devices {
			supported := led.SupportedColors(d)
			colors := make([]string, 0, len(supported))
			for _, c := range supported {
				colors = append(colors, c.String())
			}
			infos = append(infos, models.LEDInfo{
				Name:          d.Name(),
				Path:          d.Path(),
				Kind:          string(d.Kind()),
				Priority:      d.Priority(),
				MaxBrightness: d.MaxBrightness(),
				Colors:        colors,
			})
		}
		return &models.LEDListResponse{
			Body: models.LEDListData{LEDs: infos, Count: len(infos)},
		}, nil
	})
}
