package mixcuesdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type scriptedServer struct {
	t        *testing.T
	state    ChatState
	submits  int
	fills    int
	dedupAll bool
}

func (s *scriptedServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v0/client/events/evt-1/chat-progress", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(s.state)
			return
		}
		s.submits++
		var req struct {
			Step   int    `json:"step"`
			Answer string `json:"answer"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		res := SubmitResult{ChatProgress: s.state.ChatProgress}
		if s.dedupAll {
			res.Deduped = true
			res.NextStepData = s.state.CurrentStepData
		} else {
			res.ChatProgress.CurrentStep = req.Step + 1
			if req.Step >= 7 {
				res.IsCompleted = true
				res.BotMessage = &ChatMessage{ID: "bot-done", Text: "all set", IsBot: true, Timestamp: time.Now().UnixMilli()}
			} else {
				next := StepData{Question: "next question", InputType: "text"}
				res.NextStepData = &next
				res.BotMessage = &ChatMessage{ID: "bot-" + req.Answer, Text: next.Question, IsBot: true, Timestamp: time.Now().UnixMilli()}
			}
		}
		s.state.ChatProgress = res.ChatProgress
		s.state.IsCompleted = res.IsCompleted
		json.NewEncoder(w).Encode(res)
	})
	mux.HandleFunc("/v0/client/events/evt-1/chat-progress/fill-forms", func(w http.ResponseWriter, r *http.Request) {
		s.fills++
		json.NewEncoder(w).Encode(FillFormsResult{Message: "ok"})
	})
	return mux
}

func newController(t *testing.T, s *scriptedServer) (*ChatController, func()) {
	t.Helper()
	srv := httptest.NewServer(s.handler())
	c := New(srv.URL, "evt-1")
	c.ClientKey = "key-1"
	cc := NewChatController(c)
	return cc, srv.Close
}

func baseState() ChatState {
	return ChatState{
		ChatProgress: ChatProgress{ID: "prog-1", EventID: "evt-1", UserID: "client-1", CurrentStep: 1},
		Messages: []ChatMessage{
			{ID: "m1", Text: "What are the couple's names?", IsBot: true, Timestamp: 1000},
		},
		CurrentStepData: &StepData{Question: "What are the couple's names?", InputType: "text"},
	}
}

func TestControllerLoadDeduplicatesHistory(t *testing.T) {
	s := &scriptedServer{t: t, state: baseState()}
	s.state.Messages = append(s.state.Messages, s.state.Messages[0])
	cc, done := newController(t, s)
	defer done()

	typed := 0
	cc.OnTyping = func(ChatMessage) { typed++ }
	if err := cc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cc.Messages()) != 1 {
		t.Fatalf("history not deduplicated: %d", len(cc.Messages()))
	}
	if typed != 0 {
		t.Fatal("replayed history must not fire the typing hook")
	}
}

func TestControllerOptimisticSubmitAndReconcile(t *testing.T) {
	s := &scriptedServer{t: t, state: baseState()}
	cc, done := newController(t, s)
	defer done()
	if err := cc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	typed := 0
	cc.OnTyping = func(ChatMessage) { typed++ }
	if err := cc.Submit(context.Background(), "Avery and Sam"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	msgs := cc.Messages()
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want greeting + user + bot", len(msgs))
	}
	if msgs[1].Text != "Avery and Sam" || msgs[1].IsBot {
		t.Fatalf("optimistic user message: %+v", msgs[1])
	}
	if !msgs[2].IsBot || typed != 1 {
		t.Fatalf("fresh bot message should fire typing once: %+v typed=%d", msgs[2], typed)
	}
	if cc.CurrentStep() != 2 {
		t.Fatalf("step = %d", cc.CurrentStep())
	}
}

func TestControllerDiscardsOptimisticOnDedup(t *testing.T) {
	s := &scriptedServer{t: t, state: baseState(), dedupAll: true}
	cc, done := newController(t, s)
	defer done()
	if err := cc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := cc.Submit(context.Background(), "Avery and Sam"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(cc.Messages()) != 1 {
		t.Fatalf("optimistic entry not discarded: %d messages", len(cc.Messages()))
	}
}

func TestControllerLocalDedupWindow(t *testing.T) {
	s := &scriptedServer{t: t, state: baseState()}
	cc, done := newController(t, s)
	defer done()
	if err := cc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	now := time.Unix(100, 0)
	cc.now = func() time.Time { return now }
	if err := cc.Submit(context.Background(), "same answer"); err != nil {
		t.Fatalf("first: %v", err)
	}
	now = now.Add(300 * time.Millisecond)
	if err := cc.Submit(context.Background(), "same answer"); err != nil {
		t.Fatalf("double: %v", err)
	}
	if s.submits != 1 {
		t.Fatalf("double submit reached the server: %d", s.submits)
	}
}

func TestControllerCalendarLinkIsLocalOnly(t *testing.T) {
	s := &scriptedServer{t: t, state: baseState()}
	s.state.DJCalendarLink = "https://cal.example/dj"
	cc, done := newController(t, s)
	defer done()
	if err := cc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	var opened string
	cc.OnOpenURL = func(u string) { opened = u }
	if err := cc.Submit(context.Background(), AnswerCalendarLink); err != nil {
		t.Fatalf("calendar link: %v", err)
	}
	if opened != "https://cal.example/dj" {
		t.Fatalf("opened = %q", opened)
	}
	if s.submits != 0 || len(cc.Messages()) != 1 {
		t.Fatal("calendar link must not mutate state")
	}
}

func TestControllerCompletionFillsFormsOnce(t *testing.T) {
	s := &scriptedServer{t: t, state: baseState()}
	s.state.ChatProgress.CurrentStep = 7
	s.state.CurrentStepData = &StepData{Question: "Anything else?", Options: []string{AnswerDone}, InputType: "text"}
	cc, done := newController(t, s)
	defer done()
	if err := cc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	completed := 0
	cc.OnCompleted = func() { completed++ }
	if err := cc.Submit(context.Background(), AnswerDone); err != nil {
		t.Fatalf("done: %v", err)
	}
	if !cc.IsCompleted() || cc.StepData() != nil {
		t.Fatalf("completion state: completed=%v step=%+v", cc.IsCompleted(), cc.StepData())
	}
	if s.fills != 1 || completed != 1 {
		t.Fatalf("fills=%d completed=%d", s.fills, completed)
	}

	// Completion is one-directional.
	if err := cc.Submit(context.Background(), "more"); err == nil {
		t.Fatal("submit after completion should fail")
	}
	if !strings.Contains(s.state.ChatProgress.ID, "prog-1") {
		t.Fatal("sanity")
	}
}
