package server

import (
	"mixcue/internal/chatflow"
	"mixcue/internal/domain"
)

// Request payloads

type CreateEventRequest struct {
	ID          *string `json:"id,omitempty"`
	Title       string  `json:"title"`
	CoupleNames *string `json:"couple_names,omitempty"`
	EventDate   *string `json:"event_date,omitempty"`
}

type UpdateEventRequest struct {
	Status         *string `json:"status,omitempty" enum:"active,archived"`
	DJCalendarLink *string `json:"dj_calendar_link,omitempty"`
}

type SubmitAnswerRequest struct {
	Step   int    `json:"step" minimum:"1"`
	Answer string `json:"answer"`
}

type CreateClientLinkRequest struct {
	UserID string `json:"user_id"`
}

type ParseNotesRequest struct {
	Notes string `json:"notes"`
}

type SaveFormRequest[T any] struct {
	Data  T       `json:"data"`
	Notes *string `json:"notes,omitempty"`
}

// Response payloads

type ChatProgressResponse struct {
	ChatProgress    domain.ChatProgress  `json:"chat_progress"`
	Messages        []domain.ChatMessage `json:"messages"`
	CurrentStepData *domain.StepData     `json:"current_step_data,omitempty"`
	IsCompleted     bool                 `json:"is_completed"`
	DJCalendarLink  string               `json:"dj_calendar_link,omitempty"`
}

type SubmitAnswerResponse struct {
	ChatProgress domain.ChatProgress `json:"chat_progress"`
	NextStepData *domain.StepData    `json:"next_step_data,omitempty"`
	BotMessage   *domain.ChatMessage `json:"bot_message,omitempty"`
	IsCompleted  bool                `json:"is_completed"`
	Deduped      bool                `json:"deduped,omitempty"`
}

type FillFormsResponse struct {
	Message string               `json:"message"`
	Saves   chatflow.ApplyResult `json:"saves"`
}

type FormResponse[T any] struct {
	Data  T      `json:"data"`
	Notes string `json:"notes,omitempty"`
}

type ClientLinkResponse struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at"`
	// Key is the plaintext client key, returned once at creation.
	Key string `json:"key,omitempty"`
}

type IngestResponse struct {
	Document      *domain.Document     `json:"document,omitempty"`
	ParsedData    domain.Extraction    `json:"parsed_data"`
	Saves         chatflow.ApplyResult `json:"saves"`
	ChatCompleted bool                 `json:"chat_completed"`
}

func clientLinkResponse(l domain.ClientLink, key string) ClientLinkResponse {
	return ClientLinkResponse{
		ID:        l.ID,
		EventID:   l.EventID,
		UserID:    l.UserID,
		CreatedAt: l.CreatedAt,
		Key:       key,
	}
}

func chatStateResponse(st chatflow.ChatState) ChatProgressResponse {
	return ChatProgressResponse{
		ChatProgress:    st.Progress,
		Messages:        st.Messages,
		CurrentStepData: st.CurrentStep,
		IsCompleted:     st.IsCompleted,
		DJCalendarLink:  st.CalendarLink,
	}
}
