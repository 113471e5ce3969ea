package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"mixcue/internal/domain"
)

func scanProgress(scan func(dest ...any) error) (domain.ChatProgress, error) {
	var p domain.ChatProgress
	var answersJSON string
	var isCompleted, archived int
	err := scan(&p.ID, &p.EventID, &p.UserID, &p.CurrentStep, &answersJSON, &isCompleted, &archived, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.IsCompleted = isCompleted != 0
	p.Archived = archived != 0
	p.Answers = map[string]string{}
	if answersJSON != "" {
		if err := json.Unmarshal([]byte(answersJSON), &p.Answers); err != nil {
			return p, fmt.Errorf("decode answers: %w", err)
		}
	}
	return p, nil
}

const progressColumns = `id,event_id,user_id,current_step,answers_json,is_completed,archived,created_at,updated_at`

// GetActiveProgress returns the non-archived progress for (event, user).
func (r Repo) GetActiveProgress(ctx context.Context, eventID, userID string) (domain.ChatProgress, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+progressColumns+` FROM chat_progress WHERE event_id=? AND user_id=? AND archived=0`, eventID, userID)
	return scanProgress(row.Scan)
}

func (r Repo) GetProgress(ctx context.Context, id string) (domain.ChatProgress, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+progressColumns+` FROM chat_progress WHERE id=?`, id)
	return scanProgress(row.Scan)
}

func (r Repo) InsertProgress(ctx context.Context, tx *sql.Tx, p domain.ChatProgress) error {
	answers, err := json.Marshal(p.Answers)
	if err != nil {
		return err
	}
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err = exec(ctx, `INSERT INTO chat_progress(id,event_id,user_id,current_step,answers_json,is_completed,archived,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.EventID, p.UserID, p.CurrentStep, string(answers), boolInt(p.IsCompleted), boolInt(p.Archived), p.CreatedAt, p.UpdatedAt)
	return err
}

// UpdateProgress persists step pointer, answers and completion inside the
// caller's transaction. is_completed is monotone: once 1 it stays 1.
func (r Repo) UpdateProgress(ctx context.Context, tx *sql.Tx, p domain.ChatProgress) error {
	answers, err := json.Marshal(p.Answers)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE chat_progress SET current_step=?, answers_json=?, is_completed=MAX(is_completed, ?), updated_at=? WHERE id=?`,
		p.CurrentStep, string(answers), boolInt(p.IsCompleted), p.UpdatedAt, p.ID)
	return err
}

// ArchiveProgress retires a progress record so a fresh one can be created.
// The record itself is never deleted.
func (r Repo) ArchiveProgress(ctx context.Context, tx *sql.Tx, id, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE chat_progress SET archived=1, updated_at=? WHERE id=?`, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertChatMessage(ctx context.Context, tx *sql.Tx, progressID string, m domain.ChatMessage) error {
	var optionsJSON any
	if len(m.Options) > 0 {
		b, err := json.Marshal(m.Options)
		if err != nil {
			return err
		}
		optionsJSON = string(b)
	}
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err := exec(ctx, `INSERT INTO chat_messages(id,progress_id,text,is_bot,ts_ms,options_json) VALUES (?,?,?,?,?,?)`,
		m.ID, progressID, m.Text, boolInt(m.IsBot), m.Timestamp, optionsJSON)
	return err
}

// ListChatMessages returns a progress record's transcript in append order.
func (r Repo) ListChatMessages(ctx context.Context, progressID string) ([]domain.ChatMessage, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,text,is_bot,ts_ms,options_json FROM chat_messages WHERE progress_id=? ORDER BY ts_ms ASC, id ASC`, progressID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var isBot int
		var optionsJSON sql.NullString
		if err := rows.Scan(&m.ID, &m.Text, &isBot, &m.Timestamp, &optionsJSON); err != nil {
			return nil, err
		}
		m.IsBot = isBot != 0
		if optionsJSON.Valid && optionsJSON.String != "" {
			if err := json.Unmarshal([]byte(optionsJSON.String), &m.Options); err != nil {
				return nil, fmt.Errorf("decode message options: %w", err)
			}
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// LastMatchingMessage returns the newest message with the same (is_bot, text)
// pair, used by the duplicate-submit guard.
func (r Repo) LastMatchingMessage(ctx context.Context, progressID, text string, isBot bool) (domain.ChatMessage, error) {
	var m domain.ChatMessage
	var botInt int
	err := r.DB.QueryRowContext(ctx, `SELECT id,text,is_bot,ts_ms FROM chat_messages WHERE progress_id=? AND text=? AND is_bot=? ORDER BY ts_ms DESC LIMIT 1`,
		progressID, text, boolInt(isBot)).Scan(&m.ID, &m.Text, &botInt, &m.Timestamp)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	m.IsBot = botInt != 0
	return m, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
