package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"

	"mixcue/internal/domain"
)

// HashClientKey returns the hex SHA-256 of a shareable client key. Only the
// hash is stored.
func HashClientKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (r Repo) InsertClientLink(ctx context.Context, l domain.ClientLink) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO client_links(id,event_id,user_id,key_hash,created_at) VALUES (?,?,?,?,?)`,
		l.ID, l.EventID, l.UserID, l.KeyHash, l.CreatedAt)
	return err
}

// GetClientLinkByKey resolves a presented client key to its link record.
func (r Repo) GetClientLinkByKey(ctx context.Context, key string) (domain.ClientLink, error) {
	var l domain.ClientLink
	err := r.DB.QueryRowContext(ctx, `SELECT id,event_id,user_id,key_hash,created_at FROM client_links WHERE key_hash=?`, HashClientKey(key)).
		Scan(&l.ID, &l.EventID, &l.UserID, &l.KeyHash, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	if err != nil {
		return l, err
	}
	return l, nil
}

func (r Repo) ListClientLinks(ctx context.Context, eventID string) ([]domain.ClientLink, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,event_id,user_id,key_hash,created_at FROM client_links WHERE event_id=? ORDER BY created_at DESC, id DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ClientLink
	for rows.Next() {
		var l domain.ClientLink
		if err := rows.Scan(&l.ID, &l.EventID, &l.UserID, &l.KeyHash, &l.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (r Repo) DeleteClientLink(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM client_links WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
