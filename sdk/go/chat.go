package mixcuesdk

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Answer values the controller routes specially before generic submission.
const (
	AnswerUploadTimeline = "Upload Timeline"
	AnswerCalendarLink   = "Calendar Link"
	AnswerDone           = "Done"
)

const dedupWindowMillis = 1000

// ErrSubmitInFlight is returned when a submission races an unfinished one.
// Submissions for a conversation are serialized by the caller.
var ErrSubmitInFlight = errors.New("a submission is already in flight")

// ChatController keeps the client-side view of the conversation: the
// message list, the current question, and completion state. Every user
// action is rendered optimistically and then reconciled against the
// server's canonical response. Not safe for concurrent use; it models a
// single UI event loop.
type ChatController struct {
	Client *Client

	// OnCompleted fires once when the conversation finishes, after the
	// forms were filled. The summary view takes over; there is no way back.
	OnCompleted func()
	// OnUploadRequested fires when the user picks the timeline upload
	// option, after the answer was persisted.
	OnUploadRequested func()
	// OnOpenURL fires for the calendar-link option. Nothing is persisted.
	OnOpenURL func(url string)
	// OnTyping fires for freshly produced bot messages only, never for
	// history replayed from the server.
	OnTyping func(m ChatMessage)

	now func() time.Time

	messages     []ChatMessage
	currentStep  int
	stepData     *StepData
	isCompleted  bool
	calendarLink string
	inFlight     bool
}

func NewChatController(client *Client) *ChatController {
	return &ChatController{Client: client, now: time.Now}
}

// Messages returns the current transcript.
func (cc *ChatController) Messages() []ChatMessage { return cc.messages }

// CurrentStep returns the server-authoritative step pointer.
func (cc *ChatController) CurrentStep() int { return cc.currentStep }

// StepData returns the question being asked, nil once completed.
func (cc *ChatController) StepData() *StepData { return cc.stepData }

// IsCompleted reports whether the conversation has finished.
func (cc *ChatController) IsCompleted() bool { return cc.isCompleted }

// Load re-derives all local state from the server. Replayed history does
// not fire OnTyping.
func (cc *ChatController) Load(ctx context.Context) error {
	st, err := cc.Client.LoadChat(ctx)
	if err != nil {
		return err
	}
	cc.messages = dedupByIDText(st.Messages)
	cc.currentStep = st.ChatProgress.CurrentStep
	cc.stepData = st.CurrentStepData
	cc.isCompleted = st.IsCompleted
	cc.calendarLink = st.DJCalendarLink
	return nil
}

// Submit routes one user answer. The user's message is appended
// immediately; the optimistic entry is discarded if the server disagrees.
// Duplicate submissions inside the dedup window are silently dropped.
func (cc *ChatController) Submit(ctx context.Context, answer string) error {
	if cc.inFlight {
		return ErrSubmitInFlight
	}
	if cc.isCompleted {
		return errors.New("conversation is completed")
	}

	// Opening the calendar is purely local.
	if answer == AnswerCalendarLink {
		if cc.OnOpenURL != nil && cc.calendarLink != "" {
			cc.OnOpenURL(cc.calendarLink)
		}
		return nil
	}

	ts := cc.now().UnixMilli()
	if cc.isLocalDuplicate(answer, ts) {
		return nil
	}

	optimistic := ChatMessage{
		ID:        fmt.Sprintf("local-%d-%06d", ts, rand.Intn(1000000)),
		Text:      answer,
		IsBot:     false,
		Timestamp: ts,
	}
	cc.messages = append(cc.messages, optimistic)

	cc.inFlight = true
	res, err := cc.Client.SubmitAnswer(ctx, cc.currentStep, answer)
	cc.inFlight = false
	if err != nil {
		// Roll the optimistic entry back so the user can retry.
		cc.removeMessage(optimistic.ID)
		return err
	}
	cc.reconcile(optimistic, res)

	if answer == AnswerUploadTimeline && cc.OnUploadRequested != nil {
		cc.OnUploadRequested()
	}
	if res.IsCompleted {
		// Done relies on the server's flag; fill the forms, then switch
		// to the summary view.
		if _, err := cc.Client.FillForms(ctx); err != nil {
			return err
		}
		if cc.OnCompleted != nil {
			cc.OnCompleted()
		}
	}
	return nil
}

// reconcile merges the optimistic append with the canonical response. A
// deduped submission means the server already had the message, so the
// optimistic copy is discarded.
func (cc *ChatController) reconcile(optimistic ChatMessage, res SubmitResult) {
	if res.Deduped {
		cc.removeMessage(optimistic.ID)
	}
	if res.BotMessage != nil {
		cc.messages = append(cc.messages, *res.BotMessage)
		if cc.OnTyping != nil {
			cc.OnTyping(*res.BotMessage)
		}
	}
	cc.currentStep = res.ChatProgress.CurrentStep
	cc.stepData = res.NextStepData
	cc.isCompleted = res.IsCompleted
}

func (cc *ChatController) isLocalDuplicate(text string, ts int64) bool {
	for i := len(cc.messages) - 1; i >= 0; i-- {
		m := cc.messages[i]
		if m.IsBot || m.Text != text {
			continue
		}
		delta := ts - m.Timestamp
		if delta < 0 {
			delta = -delta
		}
		if delta < dedupWindowMillis {
			return true
		}
	}
	return false
}

func (cc *ChatController) removeMessage(id string) {
	for i, m := range cc.messages {
		if m.ID == id {
			cc.messages = append(cc.messages[:i], cc.messages[i+1:]...)
			return
		}
	}
}

func dedupByIDText(msgs []ChatMessage) []ChatMessage {
	seen := make(map[string]bool, len(msgs))
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		key := m.ID + "\x00" + m.Text
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}
