package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mixcue/internal/domain"
)

// The three domain forms are stored one row per event as a JSON document
// with a free-text notes sidecar. Each domain saves independently.

const (
	FormPlanning = "planning"
	FormMusic    = "music"
	FormTimeline = "timeline"
)

func formTable(kind string) (string, error) {
	switch kind {
	case FormPlanning:
		return "planning_forms", nil
	case FormMusic:
		return "music_forms", nil
	case FormTimeline:
		return "timeline_forms", nil
	}
	return "", fmt.Errorf("unknown form kind %q", kind)
}

func (r Repo) getFormJSON(ctx context.Context, kind, eventID string) (string, string, error) {
	table, err := formTable(kind)
	if err != nil {
		return "", "", err
	}
	var data string
	var notes sql.NullString
	err = r.DB.QueryRowContext(ctx, `SELECT data_json, notes FROM `+table+` WHERE event_id=?`, eventID).Scan(&data, &notes)
	if err == sql.ErrNoRows {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	return data, notes.String, nil
}

func (r Repo) upsertFormJSON(ctx context.Context, tx *sql.Tx, kind, eventID, dataJSON string, notes *string) error {
	table, err := formTable(kind)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	if notes != nil {
		_, err = exec(ctx, `INSERT INTO `+table+`(event_id,data_json,notes,created_at,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(event_id) DO UPDATE SET data_json=excluded.data_json, notes=excluded.notes, updated_at=excluded.updated_at`,
			eventID, dataJSON, nullable(*notes), now, now)
		return err
	}
	_, err = exec(ctx, `INSERT INTO `+table+`(event_id,data_json,notes,created_at,updated_at) VALUES (?,?,NULL,?,?)
ON CONFLICT(event_id) DO UPDATE SET data_json=excluded.data_json, updated_at=excluded.updated_at`,
		eventID, dataJSON, now, now)
	return err
}

// GetPlanningForm returns the stored planning form, or ErrNotFound.
func (r Repo) GetPlanningForm(ctx context.Context, eventID string) (domain.PlanningForm, string, error) {
	data, notes, err := r.getFormJSON(ctx, FormPlanning, eventID)
	if err != nil {
		return domain.PlanningForm{}, "", err
	}
	var form domain.PlanningForm
	if err := json.Unmarshal([]byte(data), &form); err != nil {
		return domain.PlanningForm{}, "", fmt.Errorf("decode planning form: %w", err)
	}
	return form, notes, nil
}

func (r Repo) SavePlanningForm(ctx context.Context, eventID string, form domain.PlanningForm, notes *string) error {
	data, err := json.Marshal(form)
	if err != nil {
		return err
	}
	return r.upsertFormJSON(ctx, nil, FormPlanning, eventID, string(data), notes)
}

// GetMusicIdeasForm returns the stored music form, or ErrNotFound.
func (r Repo) GetMusicIdeasForm(ctx context.Context, eventID string) (domain.MusicIdeasForm, string, error) {
	data, notes, err := r.getFormJSON(ctx, FormMusic, eventID)
	if err != nil {
		return domain.MusicIdeasForm{}, "", err
	}
	var form domain.MusicIdeasForm
	if err := json.Unmarshal([]byte(data), &form); err != nil {
		return domain.MusicIdeasForm{}, "", fmt.Errorf("decode music form: %w", err)
	}
	return form, notes, nil
}

func (r Repo) SaveMusicIdeasForm(ctx context.Context, eventID string, form domain.MusicIdeasForm, notes *string) error {
	data, err := json.Marshal(form)
	if err != nil {
		return err
	}
	return r.upsertFormJSON(ctx, nil, FormMusic, eventID, string(data), notes)
}

// GetTimelineForm returns the stored timeline, or ErrNotFound.
func (r Repo) GetTimelineForm(ctx context.Context, eventID string) (domain.TimelineForm, string, error) {
	data, notes, err := r.getFormJSON(ctx, FormTimeline, eventID)
	if err != nil {
		return domain.TimelineForm{}, "", err
	}
	var form domain.TimelineForm
	if err := json.Unmarshal([]byte(data), &form); err != nil {
		return domain.TimelineForm{}, "", fmt.Errorf("decode timeline form: %w", err)
	}
	return form, notes, nil
}

func (r Repo) SaveTimelineForm(ctx context.Context, eventID string, form domain.TimelineForm, notes *string) error {
	data, err := json.Marshal(form)
	if err != nil {
		return err
	}
	return r.upsertFormJSON(ctx, nil, FormTimeline, eventID, string(data), notes)
}
