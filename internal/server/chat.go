package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"mixcue/internal/domain"
)

func registerChat(api huma.API, cfg Config) {
	e := cfg.Chat

	huma.Register(api, huma.Operation{
		OperationID: "get-chat-progress",
		Method:      http.MethodGet,
		Path:        "/client/events/{event_id}/chat-progress",
		Summary:     "Load or start the planning conversation",
	}, func(ctx context.Context, input *struct {
		EventID string `path:"event_id"`
	}) (*struct {
		Body ChatProgressResponse `json:"body"`
	}, error) {
		p, authErr := requireEventAccess(ctx, input.EventID)
		if authErr != nil {
			return nil, authErr
		}
		st, err := e.GetOrCreate(ctx, input.EventID, p.ActorID, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ChatProgressResponse `json:"body"`
		}{Body: chatStateResponse(st)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-chat-answer",
		Method:      http.MethodPost,
		Path:        "/client/events/{event_id}/chat-progress",
		Summary:     "Submit one answer and advance the conversation",
	}, func(ctx context.Context, input *struct {
		EventID string              `path:"event_id"`
		Body    SubmitAnswerRequest `json:"body"`
	}) (*struct {
		Body SubmitAnswerResponse `json:"body"`
	}, error) {
		p, authErr := requireEventAccess(ctx, input.EventID)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.SubmitAnswer(ctx, input.EventID, p.ActorID, input.Body.Step, input.Body.Answer)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SubmitAnswerResponse `json:"body"`
		}{Body: SubmitAnswerResponse{
			ChatProgress: res.Progress,
			NextStepData: res.NextStep,
			BotMessage:   res.BotMessage,
			IsCompleted:  res.IsCompleted,
			Deduped:      res.Deduped,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "fill-forms-from-chat",
		Method:      http.MethodPost,
		Path:        "/client/events/{event_id}/chat-progress/fill-forms",
		Summary:     "Map the conversation's answers onto the planning forms",
	}, func(ctx context.Context, input *struct {
		EventID string `path:"event_id"`
	}) (*struct {
		Body FillFormsResponse `json:"body"`
	}, error) {
		p, authErr := requireEventAccess(ctx, input.EventID)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.FillForms(ctx, input.EventID, p.ActorID, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FillFormsResponse `json:"body"`
		}{Body: FillFormsResponse{
			Message: "forms updated from chat answers",
			Saves:   res,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset-chat-progress",
		Method:      http.MethodPost,
		Path:        "/events/{event_id}/chat-progress/reset",
		Summary:     "Archive a client's conversation and start over",
	}, func(ctx context.Context, input *struct {
		EventID string `path:"event_id"`
		Body    struct {
			UserID string `json:"user_id"`
		} `json:"body"`
	}) (*struct {
		Body domain.ChatProgress `json:"body"`
	}, error) {
		admin, authErr := requireAdmin(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		fresh, err := e.Reset(ctx, input.EventID, input.Body.UserID, admin.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ChatProgress `json:"body"`
		}{Body: fresh}, nil
	})
}
