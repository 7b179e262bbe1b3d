package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/feedbackd/internal/api/models"
	"github.com/smazurov/feedbackd/internal/feedback"
)

// feedbackError maps manager errors to HTTP status codes.
func feedbackError(msg string, err error) error {
	switch feedback.ErrorCode(err) {
	case feedback.ErrCodeInvalidArgs, feedback.ErrCodeUnknownProfile:
		return huma.Error422UnprocessableEntity(msg, err)
	case feedback.ErrCodeNotFound:
		return huma.Error404NotFound(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}

func (s *Server) registerFeedbackRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/api/feedback/events",
		Summary:     "List Events",
		Description: "List the running feedback events",
		Tags:        []string{"feedback"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.EventListResponse, error) {
		evs := s.options.Manager.Events()
		return &models.EventListResponse{
			Body: models.EventListData{Events: evs, Count: len(evs)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-event",
		Method:      http.MethodGet,
		Path:        "/api/feedback/events/{id}",
		Summary:     "Get Event",
		Description: "Get one running feedback event",
		Tags:        []string{"feedback"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.EventPath) (*models.EventResponse, error) {
		info, ok := s.options.Manager.Lookup(input.ID)
		if !ok {
			return nil, huma.Error404NotFound("no running event with this id")
		}
		return &models.EventResponse{Body: info}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "end-event",
		Method:        http.MethodDelete,
		Path:          "/api/feedback/events/{id}",
		Summary:       "End Event",
		Description:   "End all feedbacks of a running event. The end is reported on the event stream.",
		Tags:          []string{"feedback"},
		Errors:        []int{401, 404},
		Security:      withAuth(),
		DefaultStatus: http.StatusNoContent,
	}, func(_ context.Context, input *models.EventPath) (*struct{}, error) {
		if err := s.options.Manager.End(input.ID); err != nil {
			return nil, feedbackError("failed to end event", err)
		}
		return nil, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "trigger-event",
		Method:      http.MethodPost,
		Path:        "/api/feedback/trigger",
		Summary:     "Trigger Event",
		Description: "Trigger feedback for an event, as a client over IPC would",
		Tags:        []string{"feedback"},
		Errors:      []int{401, 422},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.TriggerRequest) (*models.TriggerResponse, error) {
		b := input.Body
		id, err := s.options.Manager.Trigger(feedback.TriggerRequest{
			AppID: b.AppID,
			Event: b.Event,
			Hints: feedback.Hints{
				Profile:   b.Profile,
				Important: b.Important,
				SoundFile: b.SoundFile,
			},
			Timeout: b.Timeout,
			Sender:  "http",
		}, nil)
		if err != nil {
			return nil, feedbackError("failed to trigger event", err)
		}
		return &models.TriggerResponse{
			Body: models.TriggerData{ID: id, Time: time.Now().UTC()},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/api/feedback/profile",
		Summary:     "Get Profile",
		Description: "Get the global feedback profile",
		Tags:        []string{"feedback"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.ProfileResponse, error) {
		return &models.ProfileResponse{
			Body: models.ProfileData{Profile: s.options.Manager.Profile()},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-profile",
		Method:      http.MethodPut,
		Path:        "/api/feedback/profile",
		Summary:     "Set Profile",
		Description: "Set the global feedback profile. Running feedbacks above the new level are ended.",
		Tags:        []string{"feedback"},
		Errors:      []int{401, 422},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.ProfileRequest) (*models.ProfileResponse, error) {
		if err := s.options.Manager.SetProfile(input.Body.Profile); err != nil {
			return nil, feedbackError("failed to set profile", err)
		}
		return &models.ProfileResponse{
			Body: models.ProfileData{Profile: s.options.Manager.Profile()},
		}, nil
	})
}
