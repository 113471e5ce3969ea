// Package ingest coordinates document and notes ingestion: remote parse,
// field mapping across the three domains, and per-domain saves that fail
// independently.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mixcue/internal/chatflow"
	"mixcue/internal/domain"
	"mixcue/internal/events"
	"mixcue/internal/mapper"
	"mixcue/internal/parser"
	"mixcue/internal/repo"
)

const (
	StatusIdle    = "idle"
	StatusSaving  = "saving"
	StatusSuccess = "success"
	StatusError   = "error"
)

type Orchestrator struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Parser parser.Client
	Mapper mapper.Mapper
	Log    zerolog.Logger
	Now    func() time.Time
}

func New(db *sql.DB, p parser.Client, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Parser: p,
		Mapper: mapper.New(log),
		Log:    log,
		Now:    time.Now,
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Result is the outcome of one ingestion run.
type Result struct {
	Document      *domain.Document
	Extraction    domain.Extraction
	Apply         chatflow.ApplyResult
	ChatCompleted bool
}

// IngestDocument uploads a file to the parser and maps the extraction onto
// all three forms. Documents are treated as authoritative, so the mapping
// replaces existing collections.
func (o *Orchestrator) IngestDocument(ctx context.Context, eventID, userID, actorID, filename, docType string, content io.Reader) (Result, error) {
	if _, err := o.Repo.GetEvent(ctx, eventID); err != nil {
		return Result{}, err
	}
	ex, err := o.Parser.ParseDocument(ctx, eventID, filename, docType, content)
	if err != nil {
		// No form was touched: mapping only runs after a successful parse.
		return Result{}, fmt.Errorf("parse document: %w", err)
	}

	doc := domain.Document{
		ID:         uuid.NewString(),
		EventID:    eventID,
		Filename:   filename,
		DocType:    docType,
		Confidence: ex.ConfidenceScore,
		CreatedAt:  o.now().UTC().Format(time.RFC3339),
	}
	if err := o.Repo.InsertDocument(ctx, nil, doc); err != nil {
		return Result{}, fmt.Errorf("record document: %w", err)
	}

	res := Result{
		Document:   &doc,
		Extraction: ex,
		Apply:      o.Apply(ctx, eventID, ex, false),
	}
	res.ChatCompleted = o.chatCompleted(ctx, eventID, userID)
	o.logRun(ctx, "document.ingest", eventID, doc.ID, actorID, res.Apply)
	return res, nil
}

// IngestNotes parses pasted free-text notes and maps the extraction in
// append mode: notes enrich the forms, they never wipe them.
func (o *Orchestrator) IngestNotes(ctx context.Context, eventID, userID, actorID, notes string) (Result, error) {
	if _, err := o.Repo.GetEvent(ctx, eventID); err != nil {
		return Result{}, err
	}
	ex, err := o.Parser.ParseNotes(ctx, eventID, notes)
	if err != nil {
		return Result{}, fmt.Errorf("parse notes: %w", err)
	}

	res := Result{
		Extraction: ex,
		Apply:      o.Apply(ctx, eventID, ex, true),
	}
	res.ChatCompleted = o.chatCompleted(ctx, eventID, userID)
	o.logRun(ctx, "notes.ingest", eventID, "", actorID, res.Apply)
	return res, nil
}

// Apply runs the field mapper across all three domains and saves each one
// independently. A failed save is logged and reported per domain; it never
// blocks the other two. There is deliberately no shared transaction here.
func (o *Orchestrator) Apply(ctx context.Context, eventID string, ex domain.Extraction, appendMode bool) chatflow.ApplyResult {
	var res chatflow.ApplyResult
	res.Planning = o.applyPlanning(ctx, eventID, ex, appendMode)
	res.Music = o.applyMusic(ctx, eventID, ex, appendMode)
	res.Timeline = o.applyTimeline(ctx, eventID, ex, appendMode)
	return res
}

func (o *Orchestrator) applyPlanning(ctx context.Context, eventID string, ex domain.Extraction, appendMode bool) chatflow.SaveOutcome {
	current, _, err := o.Repo.GetPlanningForm(ctx, eventID)
	if errors.Is(err, repo.ErrNotFound) {
		current = domain.EmptyPlanningForm()
	} else if err != nil {
		return o.failed("planning", eventID, err)
	}
	mapped := o.Mapper.FillPlanningForm(current, ex, appendMode)
	if err := o.Repo.SavePlanningForm(ctx, eventID, mapped, nil); err != nil {
		return o.failed("planning", eventID, err)
	}
	return chatflow.SaveOutcome{Status: StatusSuccess}
}

func (o *Orchestrator) applyMusic(ctx context.Context, eventID string, ex domain.Extraction, appendMode bool) chatflow.SaveOutcome {
	current, _, err := o.Repo.GetMusicIdeasForm(ctx, eventID)
	if errors.Is(err, repo.ErrNotFound) {
		current = domain.EmptyMusicIdeasForm()
	} else if err != nil {
		return o.failed("music", eventID, err)
	}
	mapped := o.Mapper.FillMusicIdeasForm(current, ex, appendMode)
	if err := o.Repo.SaveMusicIdeasForm(ctx, eventID, mapped, nil); err != nil {
		return o.failed("music", eventID, err)
	}
	return chatflow.SaveOutcome{Status: StatusSuccess}
}

func (o *Orchestrator) applyTimeline(ctx context.Context, eventID string, ex domain.Extraction, appendMode bool) chatflow.SaveOutcome {
	current, _, err := o.Repo.GetTimelineForm(ctx, eventID)
	if errors.Is(err, repo.ErrNotFound) {
		current = domain.EmptyTimelineForm()
	} else if err != nil {
		return o.failed("timeline", eventID, err)
	}
	mapped := o.Mapper.FillTimelineForm(current, ex, appendMode)
	if err := o.Repo.SaveTimelineForm(ctx, eventID, mapped, nil); err != nil {
		return o.failed("timeline", eventID, err)
	}
	return chatflow.SaveOutcome{Status: StatusSuccess}
}

func (o *Orchestrator) failed(dom, eventID string, err error) chatflow.SaveOutcome {
	o.Log.Error().Err(err).Str("domain", dom).Str("event_id", eventID).Msg("form save failed")
	return chatflow.SaveOutcome{Status: StatusError, Error: err.Error()}
}

func (o *Orchestrator) chatCompleted(ctx context.Context, eventID, userID string) bool {
	if userID == "" {
		return false
	}
	p, err := o.Repo.GetActiveProgress(ctx, eventID, userID)
	return err == nil && p.IsCompleted
}

func (o *Orchestrator) logRun(ctx context.Context, actType, eventID, entityID, actorID string, apply chatflow.ApplyResult) {
	tx, err := o.DB.BeginTx(ctx, nil)
	if err != nil {
		o.Log.Warn().Err(err).Msg("activity not recorded")
		return
	}
	defer tx.Rollback()
	err = o.Events.Append(ctx, tx, actType, eventID, "extraction", entityID, actorID, events.Payload{
		"planning": apply.Planning.Status,
		"music":    apply.Music.Status,
		"timeline": apply.Timeline.Status,
	})
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		o.Log.Warn().Err(err).Msg("activity not recorded")
	}
}
