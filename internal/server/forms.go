package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"mixcue/internal/domain"
	"mixcue/internal/repo"
)

// The three form editors share one wire shape: {data, notes}. Admin and
// client route variants are registered from the same handlers.
func registerForms(api huma.API, cfg Config) {
	for _, v := range []struct {
		prefix string
		suffix string
	}{
		{prefix: "", suffix: ""},
		{prefix: "/client", suffix: "-client"},
	} {
		registerPlanningForm(api, cfg, v.prefix, v.suffix)
		registerMusicForm(api, cfg, v.prefix, v.suffix)
		registerTimelineForm(api, cfg, v.prefix, v.suffix)
	}
}

func registerPlanningForm(api huma.API, cfg Config, prefix, suffix string) {
	e := cfg.Chat

	huma.Register(api, huma.Operation{
		OperationID: "get-planning-form" + suffix,
		Method:      http.MethodGet,
		Path:        prefix + "/events/{event_id}/planning",
		Summary:     "Get planning form",
	}, func(ctx context.Context, input *struct {
		EventID string `path:"event_id"`
	}) (*struct {
		Body FormResponse[domain.PlanningForm] `json:"body"`
	}, error) {
		if _, authErr := requireEventAccess(ctx, input.EventID); authErr != nil {
			return nil, authErr
		}
		form, notes, err := e.Repo.GetPlanningForm(ctx, input.EventID)
		if errors.Is(err, repo.ErrNotFound) {
			form, notes = domain.EmptyPlanningForm(), ""
		} else if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FormResponse[domain.PlanningForm] `json:"body"`
		}{Body: FormResponse[domain.PlanningForm]{Data: form, Notes: notes}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-planning-form" + suffix,
		Method:      http.MethodPut,
		Path:        prefix + "/events/{event_id}/planning",
		Summary:     "Save planning form",
	}, func(ctx context.Context, input *struct {
		EventID string                               `path:"event_id"`
		Body    SaveFormRequest[domain.PlanningForm] `json:"body"`
	}) (*struct {
		Body FormResponse[domain.PlanningForm] `json:"body"`
	}, error) {
		if _, authErr := requireEventAccess(ctx, input.EventID); authErr != nil {
			return nil, authErr
		}
		if _, err := e.Repo.GetEvent(ctx, input.EventID); err != nil {
			return nil, handleError(err)
		}
		if err := e.Repo.SavePlanningForm(ctx, input.EventID, input.Body.Data, input.Body.Notes); err != nil {
			return nil, handleError(err)
		}
		form, notes, err := e.Repo.GetPlanningForm(ctx, input.EventID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FormResponse[domain.PlanningForm] `json:"body"`
		}{Body: FormResponse[domain.PlanningForm]{Data: form, Notes: notes}}, nil
	})
}

func registerMusicForm(api huma.API, cfg Config, prefix, suffix string) {
	e := cfg.Chat

	huma.Register(api, huma.Operation{
		OperationID: "get-music-ideas-form" + suffix,
		Method:      http.MethodGet,
		Path:        prefix + "/events/{event_id}/music-ideas",
		Summary:     "Get music ideas form",
	}, func(ctx context.Context, input *struct {
		EventID string `path:"event_id"`
	}) (*struct {
		Body FormResponse[domain.MusicIdeasForm] `json:"body"`
	}, error) {
		if _, authErr := requireEventAccess(ctx, input.EventID); authErr != nil {
			return nil, authErr
		}
		form, notes, err := e.Repo.GetMusicIdeasForm(ctx, input.EventID)
		if errors.Is(err, repo.ErrNotFound) {
			form, notes = domain.EmptyMusicIdeasForm(), ""
		} else if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FormResponse[domain.MusicIdeasForm] `json:"body"`
		}{Body: FormResponse[domain.MusicIdeasForm]{Data: form, Notes: notes}}, nil
	})

	// Category caps are enforced here, on the editor save path only. An AI
	// import can exceed a cap; the editor surfaces the violation and blocks
	// manual saves until the list is trimmed.
	huma.Register(api, huma.Operation{
		OperationID: "save-music-ideas-form" + suffix,
		Method:      http.MethodPut,
		Path:        prefix + "/events/{event_id}/music-ideas",
		Summary:     "Save music ideas form",
	}, func(ctx context.Context, input *struct {
		EventID string                                 `path:"event_id"`
		Body    SaveFormRequest[domain.MusicIdeasForm] `json:"body"`
	}) (*struct {
		Body FormResponse[domain.MusicIdeasForm] `json:"body"`
	}, error) {
		if _, authErr := requireEventAccess(ctx, input.EventID); authErr != nil {
			return nil, authErr
		}
		if violations := input.Body.Data.LimitViolations(); len(violations) > 0 {
			details := map[string]any{}
			for name, n := range violations {
				details[name] = map[string]int{"count": n, "limit": domain.MusicCategoryLimits[name]}
			}
			return nil, newAPIError(http.StatusUnprocessableEntity, "category_limit_exceeded", "a music category exceeds its limit", details)
		}
		if _, err := e.Repo.GetEvent(ctx, input.EventID); err != nil {
			return nil, handleError(err)
		}
		if err := e.Repo.SaveMusicIdeasForm(ctx, input.EventID, input.Body.Data, input.Body.Notes); err != nil {
			return nil, handleError(err)
		}
		form, notes, err := e.Repo.GetMusicIdeasForm(ctx, input.EventID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FormResponse[domain.MusicIdeasForm] `json:"body"`
		}{Body: FormResponse[domain.MusicIdeasForm]{Data: form, Notes: notes}}, nil
	})
}

func registerTimelineForm(api huma.API, cfg Config, prefix, suffix string) {
	e := cfg.Chat

	huma.Register(api, huma.Operation{
		OperationID: "get-timeline-form" + suffix,
		Method:      http.MethodGet,
		Path:        prefix + "/events/{event_id}/timeline",
		Summary:     "Get timeline form",
	}, func(ctx context.Context, input *struct {
		EventID string `path:"event_id"`
	}) (*struct {
		Body FormResponse[domain.TimelineForm] `json:"body"`
	}, error) {
		if _, authErr := requireEventAccess(ctx, input.EventID); authErr != nil {
			return nil, authErr
		}
		form, notes, err := e.Repo.GetTimelineForm(ctx, input.EventID)
		if errors.Is(err, repo.ErrNotFound) {
			form, notes = domain.EmptyTimelineForm(), ""
		} else if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FormResponse[domain.TimelineForm] `json:"body"`
		}{Body: FormResponse[domain.TimelineForm]{Data: form, Notes: notes}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-timeline-form" + suffix,
		Method:      http.MethodPut,
		Path:        prefix + "/events/{event_id}/timeline",
		Summary:     "Save timeline form",
	}, func(ctx context.Context, input *struct {
		EventID string                               `path:"event_id"`
		Body    SaveFormRequest[domain.TimelineForm] `json:"body"`
	}) (*struct {
		Body FormResponse[domain.TimelineForm] `json:"body"`
	}, error) {
		if _, authErr := requireEventAccess(ctx, input.EventID); authErr != nil {
			return nil, authErr
		}
		// Keep order a contiguous 0-based ranking matching list position.
		form := input.Body.Data
		for i := range form.TimelineItems {
			form.TimelineItems[i].Order = i
		}
		if _, err := e.Repo.GetEvent(ctx, input.EventID); err != nil {
			return nil, handleError(err)
		}
		if err := e.Repo.SaveTimelineForm(ctx, input.EventID, form, input.Body.Notes); err != nil {
			return nil, handleError(err)
		}
		saved, notes, err := e.Repo.GetTimelineForm(ctx, input.EventID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FormResponse[domain.TimelineForm] `json:"body"`
		}{Body: FormResponse[domain.TimelineForm]{Data: saved, Notes: notes}}, nil
	})
}
