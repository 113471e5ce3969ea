package ingest_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mixcue/internal/db"
	"mixcue/internal/domain"
	"mixcue/internal/ingest"
	"mixcue/internal/migrate"
	"mixcue/internal/repo"
)

type fakeParser struct {
	ex       domain.Extraction
	err      error
	gotNotes string
	gotFile  string
}

func (f *fakeParser) ParseDocument(_ context.Context, _, filename, _ string, content io.Reader) (domain.Extraction, error) {
	f.gotFile = filename
	_, _ = io.Copy(io.Discard, content)
	return f.ex, f.err
}

func (f *fakeParser) ParseNotes(_ context.Context, _, notes string) (domain.Extraction, error) {
	f.gotNotes = notes
	return f.ex, f.err
}

func newTestOrchestrator(t *testing.T, p *fakeParser) (*ingest.Orchestrator, context.Context) {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	o := ingest.New(conn, p, zerolog.Nop())
	o.Now = func() time.Time { return time.Date(2026, 6, 20, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if err := o.Repo.InsertEvent(ctx, domain.Event{
		ID: "evt-1", Title: "Summer Wedding", Status: "active",
		CreatedAt: "2026-06-20T10:00:00Z",
	}); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return o, ctx
}

func extraction() domain.Extraction {
	return domain.Extraction{
		ExtractedFields: map[string]any{
			"guestCount":        float64(150),
			"ceremonyStartTime": "2pm",
			"songs": []any{
				map[string]any{"title": "Perfect", "artist": "Ed Sheeran", "category": "must_play"},
			},
			"timeline_times": []any{"4pm", "2pm"},
		},
		ConfidenceScore: 92,
	}
}

func TestIngestDocumentMapsAllThreeDomains(t *testing.T) {
	p := &fakeParser{ex: extraction()}
	o, ctx := newTestOrchestrator(t, p)

	res, err := o.IngestDocument(ctx, "evt-1", "client-1", "admin-1", "schedule.pdf", "timeline", strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Apply.Planning.Status != "success" || res.Apply.Music.Status != "success" || res.Apply.Timeline.Status != "success" {
		t.Fatalf("apply: %+v", res.Apply)
	}
	if res.Document == nil || res.Document.Filename != "schedule.pdf" || res.Document.Confidence != 92 {
		t.Fatalf("document record: %+v", res.Document)
	}

	planning, _, err := o.Repo.GetPlanningForm(ctx, "evt-1")
	if err != nil || planning.GuestCount != 150 || planning.CeremonyStartTime != "14:00" {
		t.Fatalf("planning: %+v %v", planning, err)
	}
	music, _, err := o.Repo.GetMusicIdeasForm(ctx, "evt-1")
	if err != nil || len(music.MustPlay) != 1 || music.MustPlay[0].SongTitle != "Perfect" {
		t.Fatalf("music: %+v %v", music, err)
	}
	timeline, _, err := o.Repo.GetTimelineForm(ctx, "evt-1")
	if err != nil || len(timeline.TimelineItems) != 2 || timeline.TimelineItems[0].StartTime != "14:00" {
		t.Fatalf("timeline: %+v %v", timeline, err)
	}

	docs, err := o.Repo.ListDocuments(ctx, "evt-1")
	if err != nil || len(docs) != 1 {
		t.Fatalf("documents: %+v %v", docs, err)
	}
}

func TestDocumentReplacesNotesAppend(t *testing.T) {
	p := &fakeParser{ex: extraction()}
	o, ctx := newTestOrchestrator(t, p)

	if _, err := o.IngestDocument(ctx, "evt-1", "", "admin-1", "a.pdf", "", strings.NewReader("x")); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	// A second document replaces; the music list does not grow.
	if _, err := o.IngestDocument(ctx, "evt-1", "", "admin-1", "b.pdf", "", strings.NewReader("x")); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	music, _, _ := o.Repo.GetMusicIdeasForm(ctx, "evt-1")
	if len(music.MustPlay) != 1 {
		t.Fatalf("document ingest should replace: %d songs", len(music.MustPlay))
	}

	// Notes append on top of what documents produced.
	if _, err := o.IngestNotes(ctx, "evt-1", "", "admin-1", "they also want September"); err != nil {
		t.Fatalf("notes ingest: %v", err)
	}
	if p.gotNotes != "they also want September" {
		t.Fatalf("notes not forwarded: %q", p.gotNotes)
	}
	music, _, _ = o.Repo.GetMusicIdeasForm(ctx, "evt-1")
	if len(music.MustPlay) != 2 {
		t.Fatalf("notes ingest should append: %d songs", len(music.MustPlay))
	}
	timeline, _, _ := o.Repo.GetTimelineForm(ctx, "evt-1")
	if len(timeline.TimelineItems) != 4 {
		t.Fatalf("notes ingest should append timeline items: %d", len(timeline.TimelineItems))
	}
}

func TestParseFailureTouchesNothing(t *testing.T) {
	p := &fakeParser{err: errors.New("model overloaded")}
	o, ctx := newTestOrchestrator(t, p)

	if _, err := o.IngestDocument(ctx, "evt-1", "", "admin-1", "a.pdf", "", strings.NewReader("x")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, _, err := o.Repo.GetPlanningForm(ctx, "evt-1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("planning should be untouched: %v", err)
	}
	docs, _ := o.Repo.ListDocuments(ctx, "evt-1")
	if len(docs) != 0 {
		t.Fatalf("no document should be recorded on parse failure: %d", len(docs))
	}
}

func TestTimelineSaveFailureDoesNotBlockOtherDomains(t *testing.T) {
	p := &fakeParser{ex: extraction()}
	o, ctx := newTestOrchestrator(t, p)

	// Break only the timeline domain's storage.
	if _, err := o.DB.Exec(`DROP TABLE timeline_forms`); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	res, err := o.IngestDocument(ctx, "evt-1", "", "admin-1", "a.pdf", "", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("ingest should not fail outright: %v", err)
	}
	if res.Apply.Timeline.Status != "error" || res.Apply.Timeline.Error == "" {
		t.Fatalf("timeline outcome: %+v", res.Apply.Timeline)
	}
	if res.Apply.Planning.Status != "success" || res.Apply.Music.Status != "success" {
		t.Fatalf("other domains must still save: %+v", res.Apply)
	}

	planning, _, err := o.Repo.GetPlanningForm(ctx, "evt-1")
	if err != nil || planning.GuestCount != 150 {
		t.Fatalf("planning not saved: %+v %v", planning, err)
	}
	music, _, err := o.Repo.GetMusicIdeasForm(ctx, "evt-1")
	if err != nil || len(music.MustPlay) != 1 {
		t.Fatalf("music not saved: %+v %v", music, err)
	}
}

func TestIngestUnknownEvent(t *testing.T) {
	p := &fakeParser{ex: extraction()}
	o, ctx := newTestOrchestrator(t, p)
	if _, err := o.IngestNotes(ctx, "evt-missing", "", "admin-1", "notes"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestChatCompletedFlagSurfacesForRefresh(t *testing.T) {
	p := &fakeParser{ex: extraction()}
	o, ctx := newTestOrchestrator(t, p)

	if err := o.Repo.InsertProgress(ctx, nil, domain.ChatProgress{
		ID: "prog-1", EventID: "evt-1", UserID: "client-1",
		CurrentStep: 8, Answers: map[string]string{}, IsCompleted: true,
		CreatedAt: "2026-06-20T10:00:00Z", UpdatedAt: "2026-06-20T10:00:00Z",
	}); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	res, err := o.IngestNotes(ctx, "evt-1", "client-1", "client-1", "late notes")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !res.ChatCompleted {
		t.Fatal("completed chat should be flagged for a summary refresh")
	}

	res, err = o.IngestNotes(ctx, "evt-1", "other-user", "other-user", "late notes again")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.ChatCompleted {
		t.Fatal("other users' chats are not completed")
	}
}
