package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"mixcue/internal/domain"
	"mixcue/internal/repo"
)

func registerEvents(api huma.API, cfg Config) {
	e := cfg.Chat

	huma.Register(api, huma.Operation{
		OperationID:   "create-event",
		Method:        http.MethodPost,
		Path:          "/events",
		Summary:       "Create event",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateEventRequest `json:"body"`
	}) (*struct {
		Body domain.Event `json:"body"`
	}, error) {
		if _, authErr := requireAdmin(ctx); authErr != nil {
			return nil, authErr
		}
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		ev := domain.Event{
			ID:        uuid.NewString(),
			Title:     input.Body.Title,
			Status:    "active",
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if input.Body.ID != nil && *input.Body.ID != "" {
			ev.ID = *input.Body.ID
		}
		if input.Body.CoupleNames != nil {
			ev.CoupleNames = *input.Body.CoupleNames
		}
		if input.Body.EventDate != nil {
			ev.EventDate = *input.Body.EventDate
		}
		if err := e.Repo.InsertEvent(ctx, ev); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Event `json:"body"`
		}{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List events",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		if _, authErr := requireAdmin(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListEvents(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-event",
		Method:      http.MethodGet,
		Path:        "/events/{event_id}",
		Summary:     "Get event",
	}, func(ctx context.Context, input *struct {
		EventID string `path:"event_id"`
	}) (*struct {
		Body domain.Event `json:"body"`
	}, error) {
		if _, authErr := requireEventAccess(ctx, input.EventID); authErr != nil {
			return nil, authErr
		}
		ev, err := e.Repo.GetEvent(ctx, input.EventID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Event `json:"body"`
		}{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-event",
		Method:      http.MethodPatch,
		Path:        "/events/{event_id}",
		Summary:     "Update event status or calendar link",
	}, func(ctx context.Context, input *struct {
		EventID string             `path:"event_id"`
		Body    UpdateEventRequest `json:"body"`
	}) (*struct {
		Body domain.Event `json:"body"`
	}, error) {
		if _, authErr := requireAdmin(ctx); authErr != nil {
			return nil, authErr
		}
		status := ""
		if input.Body.Status != nil {
			status = *input.Body.Status
		}
		if err := e.Repo.UpdateEvent(ctx, input.EventID, status, input.Body.DJCalendarLink); err != nil {
			return nil, handleError(err)
		}
		ev, err := e.Repo.GetEvent(ctx, input.EventID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Event `json:"body"`
		}{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/events/{event_id}/activity",
		Summary:     "Event activity log",
	}, func(ctx context.Context, input *struct {
		EventID string `path:"event_id"`
		Limit   int    `query:"limit" default:"50" maximum:"500"`
		Before  int64  `query:"before"`
	}) (*struct {
		Body []domain.Activity `json:"body"`
	}, error) {
		if _, authErr := requireAdmin(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListActivity(ctx, input.EventID, input.Limit, input.Before)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Activity `json:"body"`
		}{Body: items}, nil
	})
}

func registerClientLinks(api huma.API, cfg Config) {
	e := cfg.Chat

	huma.Register(api, huma.Operation{
		OperationID:   "create-client-link",
		Method:        http.MethodPost,
		Path:          "/events/{event_id}/client-links",
		Summary:       "Issue a shareable client key",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		EventID string                  `path:"event_id"`
		Body    CreateClientLinkRequest `json:"body"`
	}) (*struct {
		Body ClientLinkResponse `json:"body"`
	}, error) {
		if _, authErr := requireAdmin(ctx); authErr != nil {
			return nil, authErr
		}
		if input.Body.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		if _, err := e.Repo.GetEvent(ctx, input.EventID); err != nil {
			return nil, handleError(err)
		}
		key := uuid.NewString()
		link := domain.ClientLink{
			ID:        uuid.NewString(),
			EventID:   input.EventID,
			UserID:    input.Body.UserID,
			KeyHash:   repo.HashClientKey(key),
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := e.Repo.InsertClientLink(ctx, link); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ClientLinkResponse `json:"body"`
		}{Body: clientLinkResponse(link, key)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-client-links",
		Method:      http.MethodGet,
		Path:        "/events/{event_id}/client-links",
		Summary:     "List client keys for an event",
	}, func(ctx context.Context, input *struct {
		EventID string `path:"event_id"`
	}) (*struct {
		Body []ClientLinkResponse `json:"body"`
	}, error) {
		if _, authErr := requireAdmin(ctx); authErr != nil {
			return nil, authErr
		}
		links, err := e.Repo.ListClientLinks(ctx, input.EventID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]ClientLinkResponse, len(links))
		for i, l := range links {
			out[i] = clientLinkResponse(l, "")
		}
		return &struct {
			Body []ClientLinkResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-client-link",
		Method:        http.MethodDelete,
		Path:          "/client-links/{link_id}",
		Summary:       "Revoke a client key",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		LinkID string `path:"link_id"`
	}) (*struct{}, error) {
		if _, authErr := requireAdmin(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteClientLink(ctx, input.LinkID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
