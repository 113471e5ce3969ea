package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"mixcue/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertEvent(ctx context.Context, e domain.Event) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO events(id,title,couple_names,event_date,dj_calendar_link,status,created_at) VALUES (?,?,?,?,?,?,?)`,
		e.ID, e.Title, nullable(e.CoupleNames), nullable(e.EventDate), nullable(e.DJCalendarLink), e.Status, e.CreatedAt)
	return err
}

func (r Repo) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	var e domain.Event
	var coupleNames, eventDate, calendarLink sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,title,couple_names,event_date,dj_calendar_link,status,created_at FROM events WHERE id=?`, id).
		Scan(&e.ID, &e.Title, &coupleNames, &eventDate, &calendarLink, &e.Status, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if coupleNames.Valid {
		e.CoupleNames = coupleNames.String
	}
	if eventDate.Valid {
		e.EventDate = eventDate.String
	}
	if calendarLink.Valid {
		e.DJCalendarLink = calendarLink.String
	}
	return e, nil
}

func (r Repo) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,title,COALESCE(couple_names,''),COALESCE(event_date,''),COALESCE(dj_calendar_link,''),status,created_at FROM events ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.CoupleNames, &e.EventDate, &e.DJCalendarLink, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) UpdateEvent(ctx context.Context, id string, status string, calendarLink *string) error {
	var (
		fields []string
		args   []any
	)
	if status != "" {
		fields = append(fields, "status=?")
		args = append(args, status)
	}
	if calendarLink != nil {
		fields = append(fields, "dj_calendar_link=?")
		args = append(args, nullable(*calendarLink))
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, `UPDATE events SET `+strings.Join(fields, ",")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateEventDetails fills in couple names and date learned from the chat.
// Empty arguments leave the stored value alone.
func (r Repo) UpdateEventDetails(ctx context.Context, id, coupleNames, eventDate string) error {
	var (
		fields []string
		args   []any
	)
	if coupleNames != "" {
		fields = append(fields, "couple_names=?")
		args = append(args, coupleNames)
	}
	if eventDate != "" {
		fields = append(fields, "event_date=?")
		args = append(args, eventDate)
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, `UPDATE events SET `+strings.Join(fields, ",")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertDocument(ctx context.Context, tx *sql.Tx, d domain.Document) error {
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err := exec(ctx, `INSERT INTO documents(id,event_id,filename,doc_type,confidence,created_at) VALUES (?,?,?,?,?,?)`,
		d.ID, d.EventID, d.Filename, nullable(d.DocType), d.Confidence, d.CreatedAt)
	return err
}

func (r Repo) ListDocuments(ctx context.Context, eventID string) ([]domain.Document, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,event_id,filename,COALESCE(doc_type,''),confidence,created_at FROM documents WHERE event_id=? ORDER BY created_at DESC, id DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.EventID, &d.Filename, &d.DocType, &d.Confidence, &d.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// ListActivity returns activity rows for an event, newest first, id-keyed
// cursor pagination.
func (r Repo) ListActivity(ctx context.Context, eventID string, limit int, beforeID int64) ([]domain.Activity, error) {
	clauses := []string{"event_id=?"}
	args := []any{eventID}
	if beforeID > 0 {
		clauses = append(clauses, "id < ?")
		args = append(args, beforeID)
	}
	query := `SELECT id,ts,type,COALESCE(event_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM activity WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY id DESC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.TS, &a.Type, &a.EventID, &a.EntityKind, &a.EntityID, &a.ActorID, &a.Payload); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
