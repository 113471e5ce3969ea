package chatflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mixcue/internal/domain"
	"mixcue/internal/events"
	"mixcue/internal/repo"
)

var (
	// ErrCompleted rejects submissions against a finished conversation;
	// completion is one-way.
	ErrCompleted = errors.New("chat already completed")
	// ErrStaleStep rejects a submission whose base step is not the
	// server's current step.
	ErrStaleStep = errors.New("answer targets a stale step")
)

// FormApplier pushes an extraction through the field mapper and saves each
// domain form. Implemented by the ingest orchestrator.
type FormApplier interface {
	Apply(ctx context.Context, eventID string, ex domain.Extraction, appendMode bool) ApplyResult
}

// ApplyResult reports the per-domain outcome of one apply pass.
type ApplyResult struct {
	Planning SaveOutcome `json:"planning"`
	Music    SaveOutcome `json:"music"`
	Timeline SaveOutcome `json:"timeline"`
}

// SaveOutcome is a single domain's save status.
type SaveOutcome struct {
	Status string `json:"status" enum:"idle,saving,success,error"`
	Error  string `json:"error,omitempty"`
}

// Engine drives the scripted planning conversation. State is fully
// server-authoritative: clients re-derive their view from what these
// methods return.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Forms  FormApplier
	Log    zerolog.Logger
	Now    func() time.Time
}

func New(db *sql.DB, forms FormApplier, log zerolog.Logger) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Forms:  forms,
		Log:    log,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ChatState is the full server-side view of one conversation.
type ChatState struct {
	Progress     domain.ChatProgress
	Messages     []domain.ChatMessage
	CurrentStep  *domain.StepData
	IsCompleted  bool
	CalendarLink string
}

// GetOrCreate returns the active conversation for (event, user), creating
// it with the opening question on first load.
func (e Engine) GetOrCreate(ctx context.Context, eventID, userID, actorID string) (ChatState, error) {
	ev, err := e.Repo.GetEvent(ctx, eventID)
	if err != nil {
		return ChatState{}, err
	}

	p, err := e.Repo.GetActiveProgress(ctx, eventID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		p, err = e.createProgress(ctx, eventID, userID, actorID)
	}
	if err != nil {
		return ChatState{}, err
	}
	return e.state(ctx, p, ev.DJCalendarLink)
}

func (e Engine) state(ctx context.Context, p domain.ChatProgress, calendarLink string) (ChatState, error) {
	msgs, err := e.Repo.ListChatMessages(ctx, p.ID)
	if err != nil {
		return ChatState{}, err
	}
	st := ChatState{
		Progress:     p,
		Messages:     AugmentTranscript(DedupTranscript(msgs), calendarLink),
		IsCompleted:  p.IsCompleted,
		CalendarLink: calendarLink,
	}
	if !p.IsCompleted {
		if sd, ok := StepData(p.CurrentStep); ok {
			st.CurrentStep = &sd
		}
	}
	return st, nil
}

func (e Engine) createProgress(ctx context.Context, eventID, userID, actorID string) (domain.ChatProgress, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ChatProgress{}, err
	}
	defer tx.Rollback()

	now := e.now()
	stamp := now.UTC().Format(time.RFC3339)
	p := domain.ChatProgress{
		ID:          uuid.NewString(),
		EventID:     eventID,
		UserID:      userID,
		CurrentStep: FirstStep,
		Answers:     map[string]string{},
		CreatedAt:   stamp,
		UpdatedAt:   stamp,
	}
	if err := e.Repo.InsertProgress(ctx, tx, p); err != nil {
		return domain.ChatProgress{}, fmt.Errorf("insert chat progress: %w", err)
	}

	greeting, _ := StepData(FirstStep)
	if err := e.Repo.InsertChatMessage(ctx, tx, p.ID, domain.ChatMessage{
		ID:        NewMessageID(now),
		Text:      greeting.Question,
		IsBot:     true,
		Timestamp: now.UnixMilli(),
		Options:   greeting.Options,
	}); err != nil {
		return domain.ChatProgress{}, fmt.Errorf("insert greeting: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "chat.start", eventID, "chat_progress", p.ID, actorID, events.Payload{"user_id": userID}); err != nil {
		return domain.ChatProgress{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ChatProgress{}, err
	}
	return p, nil
}

// SubmitResult is what one answer submission produced.
type SubmitResult struct {
	Progress    domain.ChatProgress
	NextStep    *domain.StepData
	BotMessage  *domain.ChatMessage
	IsCompleted bool
	Deduped     bool
}

// SubmitAnswer persists one answer and advances the conversation. The step
// pointer only moves forward through a successful save, and identical
// double submits inside the dedup window are silently absorbed.
func (e Engine) SubmitAnswer(ctx context.Context, eventID, userID string, step int, answer string) (SubmitResult, error) {
	p, err := e.Repo.GetActiveProgress(ctx, eventID, userID)
	if err != nil {
		return SubmitResult{}, err
	}
	if p.IsCompleted {
		return SubmitResult{}, ErrCompleted
	}
	if step != p.CurrentStep {
		return SubmitResult{}, ErrStaleStep
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return SubmitResult{}, errors.New("answer is required")
	}

	// Opening the DJ's calendar is a pure client-side action.
	if answer == AnswerCalendarLink {
		sd, _ := StepData(p.CurrentStep)
		return SubmitResult{Progress: p, NextStep: &sd}, nil
	}

	now := e.now()
	ts := now.UnixMilli()
	if last, err := e.Repo.LastMatchingMessage(ctx, p.ID, answer, false); err == nil && IsDuplicate(last, answer, false, ts) {
		sd, _ := StepData(p.CurrentStep)
		return SubmitResult{Progress: p, NextStep: &sd, Deduped: true}, nil
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return SubmitResult{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertChatMessage(ctx, tx, p.ID, domain.ChatMessage{
		ID:        NewMessageID(now),
		Text:      answer,
		IsBot:     false,
		Timestamp: ts,
	}); err != nil {
		return SubmitResult{}, fmt.Errorf("insert user message: %w", err)
	}

	if p.Answers == nil {
		p.Answers = map[string]string{}
	}
	p.Answers[strconv.Itoa(step)] = answer

	completed := step >= LastStep()
	p.CurrentStep = step + 1
	p.IsCompleted = completed
	p.UpdatedAt = now.UTC().Format(time.RFC3339)
	if err := e.Repo.UpdateProgress(ctx, tx, p); err != nil {
		return SubmitResult{}, fmt.Errorf("update chat progress: %w", err)
	}

	bot := domain.ChatMessage{
		ID:        NewMessageID(now.Add(time.Millisecond)),
		IsBot:     true,
		Timestamp: ts + 1,
	}
	var next *domain.StepData
	if completed {
		bot.Text = CompletionPhrase
	} else {
		sd, ok := StepData(p.CurrentStep)
		if !ok {
			return SubmitResult{}, fmt.Errorf("no step data for step %d", p.CurrentStep)
		}
		bot.Text = sd.Question
		bot.Options = sd.Options
		next = &sd
	}
	if err := e.Repo.InsertChatMessage(ctx, tx, p.ID, bot); err != nil {
		return SubmitResult{}, fmt.Errorf("insert bot message: %w", err)
	}

	if err := e.Events.Append(ctx, tx, "chat.answer", eventID, "chat_progress", p.ID, userID, events.Payload{
		"step":      step,
		"completed": completed,
	}); err != nil {
		return SubmitResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return SubmitResult{}, err
	}

	if completed {
		// The stored text stays bare; the link is attached at serve time,
		// the same as on replay.
		if ev, err := e.Repo.GetEvent(ctx, eventID); err == nil {
			bot.Text = AugmentCalendarLink(bot.Text, ev.DJCalendarLink)
		} else {
			e.Log.Warn().Err(err).Str("event_id", eventID).Msg("calendar link not attached to completion message")
		}
	}

	return SubmitResult{
		Progress:    p,
		NextStep:    next,
		BotMessage:  &bot,
		IsCompleted: completed,
	}, nil
}

// Reset archives the active conversation and starts a fresh one. The old
// record and its answers are kept, never deleted.
func (e Engine) Reset(ctx context.Context, eventID, userID, actorID string) (domain.ChatProgress, error) {
	old, err := e.Repo.GetActiveProgress(ctx, eventID, userID)
	if err != nil {
		return domain.ChatProgress{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ChatProgress{}, err
	}
	defer tx.Rollback()

	now := e.now()
	if err := e.Repo.ArchiveProgress(ctx, tx, old.ID, now.UTC().Format(time.RFC3339)); err != nil {
		return domain.ChatProgress{}, err
	}
	if err := e.Events.Append(ctx, tx, "chat.reset", eventID, "chat_progress", old.ID, actorID, events.Payload{"user_id": userID}); err != nil {
		return domain.ChatProgress{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ChatProgress{}, err
	}

	return e.createProgress(ctx, eventID, userID, actorID)
}

// FillForms builds an extraction from the conversation's answers and pushes
// it through the form applier in append mode. Chat answers enrich whatever
// the forms already hold; they never wipe them.
func (e Engine) FillForms(ctx context.Context, eventID, userID, actorID string) (ApplyResult, error) {
	p, err := e.Repo.GetActiveProgress(ctx, eventID, userID)
	if err != nil {
		return ApplyResult{}, err
	}
	if e.Forms == nil {
		return ApplyResult{}, errors.New("form applier not configured")
	}

	ex := BuildExtraction(p.Answers)
	res := e.Forms.Apply(ctx, eventID, ex, true)

	if names, date := answerValue(p.Answers, "coupleNames"), answerValue(p.Answers, "eventDate"); names != "" || date != "" {
		if err := e.Repo.UpdateEventDetails(ctx, eventID, names, date); err != nil {
			e.Log.Warn().Err(err).Str("event_id", eventID).Msg("event details not updated from chat")
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "chat.fill_forms", eventID, "chat_progress", p.ID, actorID, events.Payload{
		"planning": res.Planning.Status,
		"music":    res.Music.Status,
		"timeline": res.Timeline.Status,
	}); err != nil {
		return res, err
	}
	if err := tx.Commit(); err != nil {
		return res, err
	}
	return res, nil
}

// BuildExtraction translates the scripted answers into the parser's
// extraction shape so the chat path reuses the same field mapper as
// document ingestion.
func BuildExtraction(answers map[string]string) domain.Extraction {
	fields := map[string]any{}

	if v := answerValue(answers, "guestCount"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			fields["guestCount"] = n
		}
	}
	if v := answerValue(answers, "ceremonyStartTime"); v != "" {
		fields["ceremonyStartTime"] = v
	}
	if v := answerValue(answers, "mustPlaySongs"); v != "" {
		var songs []domain.ExtractedSong
		for _, line := range strings.Split(v, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			songs = append(songs, domain.ExtractedSong{Title: line, Category: domain.CategoryMustPlay})
		}
		if len(songs) > 0 {
			fields["songs"] = songs
		}
	}
	if v := answerValue(answers, "finalNotes"); v != "" && v != AnswerDone {
		fields["musicNotes"] = v
	}

	return domain.Extraction{ExtractedFields: fields, ConfidenceScore: 100}
}

// answerValue finds the answer for the step whose script key matches.
func answerValue(answers map[string]string, key string) string {
	for i := FirstStep; i <= LastStep(); i++ {
		if answerKey(i) != key {
			continue
		}
		return answers[strconv.Itoa(i)]
	}
	return ""
}
