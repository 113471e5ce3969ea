package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"mixcue/internal/chatflow"
	"mixcue/internal/db"
	"mixcue/internal/domain"
	"mixcue/internal/ingest"
	"mixcue/internal/migrate"
	"mixcue/internal/parser"
)

type stubParser struct {
	ex domain.Extraction
}

func (s *stubParser) ParseDocument(_ context.Context, _, _, _ string, content io.Reader) (domain.Extraction, error) {
	_, _ = io.Copy(io.Discard, content)
	return s.ex, nil
}

func (s *stubParser) ParseNotes(_ context.Context, _, _ string) (domain.Extraction, error) {
	return s.ex, nil
}

var _ parser.Client = (*stubParser)(nil)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	stub := &stubParser{ex: domain.Extraction{
		ExtractedFields: map[string]any{
			"guestCount":        float64(150),
			"ceremonyStartTime": "2pm",
			"songs": []any{
				map[string]any{"title": "Perfect", "artist": "Ed Sheeran", "category": "must_play"},
			},
		},
		ConfidenceScore: 92,
	}}
	orch := ingest.New(conn, stub, zerolog.Nop())
	eng := chatflow.New(conn, orch, zerolog.Nop())

	handler, err := New(Config{
		Chat:     eng,
		Ingest:   orch,
		BasePath: "/v0",
		Auth:     AuthConfig{AllowLegacyActorHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(testSrv.Close)
	return testSrv
}

var adminHeaders = map[string]string{"X-Actor-Id": "admin-1"}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func createEvent(t *testing.T, srv *testServer) string {
	t.Helper()
	resp, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/events",
		map[string]string{"title": "Summer Wedding"}, adminHeaders)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create event: %d %s", resp.StatusCode, data)
	}
	var ev domain.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return ev.ID
}

func createClientKey(t *testing.T, srv *testServer, eventID, userID string) string {
	t.Helper()
	resp, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/events/"+eventID+"/client-links",
		map[string]string{"user_id": userID}, adminHeaders)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create client link: %d %s", resp.StatusCode, data)
	}
	var link ClientLinkResponse
	if err := json.Unmarshal(data, &link); err != nil {
		t.Fatalf("decode link: %v", err)
	}
	if link.Key == "" {
		t.Fatal("plaintext key missing from creation response")
	}
	return link.Key
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)
	resp, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/events", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("error code = %q", envelope.Error.Code)
	}
}

func TestClientKeyScopedToEvent(t *testing.T) {
	srv := newTestServer(t)
	evA := createEvent(t, srv)
	evB := createEvent(t, srv)
	key := createClientKey(t, srv, evA, "client-1")
	clientHeaders := map[string]string{"X-Client-Key": key}

	resp, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/client/events/"+evA+"/chat-progress", nil, clientHeaders)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("own event: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/client/events/"+evB+"/chat-progress", nil, clientHeaders)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign event: %d", resp.StatusCode)
	}
	// Client keys cannot use studio endpoints.
	resp, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/events", nil, clientHeaders)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("admin endpoint with client key: %d", resp.StatusCode)
	}
}

func TestChatFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	eventID := createEvent(t, srv)
	key := createClientKey(t, srv, eventID, "client-1")
	headers := map[string]string{"X-Client-Key": key}

	resp, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/client/events/"+eventID+"/chat-progress", nil, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get chat: %d %s", resp.StatusCode, data)
	}
	var state ChatProgressResponse
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	if state.IsCompleted || state.CurrentStepData == nil || len(state.Messages) != 1 {
		t.Fatalf("fresh chat: %+v", state)
	}

	step := state.ChatProgress.CurrentStep
	for !state.IsCompleted {
		resp, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/client/events/"+eventID+"/chat-progress",
			SubmitAnswerRequest{Step: step, Answer: fmt.Sprintf("answer %d", step)}, headers)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("submit step %d: %d %s", step, resp.StatusCode, data)
		}
		var sub SubmitAnswerResponse
		if err := json.Unmarshal(data, &sub); err != nil {
			t.Fatalf("decode submit: %v", err)
		}
		state.IsCompleted = sub.IsCompleted
		step = sub.ChatProgress.CurrentStep
		if step > 20 {
			t.Fatal("chat never completed")
		}
	}

	// Completed chats reject further answers with a conflict.
	resp, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/client/events/"+eventID+"/chat-progress",
		SubmitAnswerRequest{Step: step, Answer: "late"}, headers)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("post-completion submit: %d %s", resp.StatusCode, data)
	}

	// Fill the forms from the answers.
	resp, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/client/events/"+eventID+"/chat-progress/fill-forms", nil, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fill forms: %d %s", resp.StatusCode, data)
	}
	var filled FillFormsResponse
	if err := json.Unmarshal(data, &filled); err != nil {
		t.Fatalf("decode fill: %v", err)
	}
	if filled.Saves.Planning.Status != "success" {
		t.Fatalf("fill saves: %+v", filled.Saves)
	}

	// Admin reset starts a brand new record.
	resp, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/events/"+eventID+"/chat-progress/reset",
		map[string]string{"user_id": "client-1"}, adminHeaders)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset: %d %s", resp.StatusCode, data)
	}
	var fresh domain.ChatProgress
	if err := json.Unmarshal(data, &fresh); err != nil {
		t.Fatalf("decode reset: %v", err)
	}
	if fresh.IsCompleted || fresh.CurrentStep != chatflow.FirstStep {
		t.Fatalf("reset progress: %+v", fresh)
	}
}

func TestMusicFormCategoryLimit(t *testing.T) {
	srv := newTestServer(t)
	eventID := createEvent(t, srv)

	over := domain.EmptyMusicIdeasForm()
	for i := 0; i < domain.MusicCategoryLimits[domain.CategoryPlayOnlyRequested]+1; i++ {
		over.PlayOnlyIfRequested = append(over.PlayOnlyIfRequested, domain.Song{SongTitle: "Track"})
	}
	resp, data := doJSON(t, srv.Client(), http.MethodPut, srv.URL+"/v0/events/"+eventID+"/music-ideas",
		SaveFormRequest[domain.MusicIdeasForm]{Data: over}, adminHeaders)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("over-limit save: %d %s", resp.StatusCode, data)
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Error.Code != "category_limit_exceeded" {
		t.Fatalf("error code = %q", envelope.Error.Code)
	}

	within := domain.EmptyMusicIdeasForm()
	within.MustPlay = []domain.Song{{SongTitle: "Perfect", Artist: "Ed Sheeran"}}
	resp, data = doJSON(t, srv.Client(), http.MethodPut, srv.URL+"/v0/events/"+eventID+"/music-ideas",
		SaveFormRequest[domain.MusicIdeasForm]{Data: within}, adminHeaders)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("within-limit save: %d %s", resp.StatusCode, data)
	}
}

func TestTimelinePutRenumbersOrder(t *testing.T) {
	srv := newTestServer(t)
	eventID := createEvent(t, srv)

	form := domain.TimelineForm{TimelineItems: []domain.TimelineItem{
		{ID: "a", Name: "Ceremony", StartTime: "15:00", Order: 7},
		{ID: "b", Name: "Dinner", StartTime: "18:00", Order: 2},
	}}
	resp, data := doJSON(t, srv.Client(), http.MethodPut, srv.URL+"/v0/events/"+eventID+"/timeline",
		SaveFormRequest[domain.TimelineForm]{Data: form}, adminHeaders)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save timeline: %d %s", resp.StatusCode, data)
	}
	var saved FormResponse[domain.TimelineForm]
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("decode timeline: %v", err)
	}
	for i, item := range saved.Data.TimelineItems {
		if item.Order != i {
			t.Fatalf("order not contiguous: %+v", saved.Data.TimelineItems)
		}
	}
}

func TestDocumentUploadMapsForms(t *testing.T) {
	srv := newTestServer(t)
	eventID := createEvent(t, srv)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("document", "schedule.pdf")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write([]byte("pdf bytes"))
	w.WriteField("document_type", "timeline")
	w.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v0/events/"+eventID+"/documents/upload", &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Actor-Id", "admin-1")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload: %d %s", resp.StatusCode, data)
	}
	var res IngestResponse
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if res.Document == nil || res.Document.Filename != "schedule.pdf" {
		t.Fatalf("document: %+v", res.Document)
	}
	if res.Saves.Planning.Status != "success" || res.Saves.Music.Status != "success" || res.Saves.Timeline.Status != "success" {
		t.Fatalf("saves: %+v", res.Saves)
	}

	// The mapped planning form is readable afterwards.
	resp2, data2 := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/events/"+eventID+"/planning", nil, adminHeaders)
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("get planning: %d %s", resp2.StatusCode, data2)
	}
	var planning FormResponse[domain.PlanningForm]
	if err := json.Unmarshal(data2, &planning); err != nil {
		t.Fatalf("decode planning: %v", err)
	}
	if planning.Data.GuestCount != 150 || planning.Data.CeremonyStartTime != "14:00" {
		t.Fatalf("planning: %+v", planning.Data)
	}
}

func TestParseNotesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	eventID := createEvent(t, srv)
	key := createClientKey(t, srv, eventID, "client-1")

	resp, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/client/events/"+eventID+"/documents/parse-notes",
		ParseNotesRequest{Notes: "guest count 150, ceremony at 2pm"}, map[string]string{"X-Client-Key": key})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("parse notes: %d %s", resp.StatusCode, data)
	}
	var res IngestResponse
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Document != nil {
		t.Fatal("notes parse should not record a document")
	}
	if res.Saves.Music.Status != "success" {
		t.Fatalf("saves: %+v", res.Saves)
	}
}
