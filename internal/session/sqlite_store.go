package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteStore implements Store on a database/sql handle, one row per
// session with the session body as a JSON column.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the sessions table if needed and returns a store.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	const schema = `CREATE TABLE IF NOT EXISTS sessions (
		id             TEXT PRIMARY KEY,
		body           TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		last_active_at TEXT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating sessions table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	buf, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshaling session %s: %w", sess.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, body, created_at, last_active_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET body = excluded.body, last_active_at = excluded.last_active_at`,
		sess.ID, string(buf),
		sess.CreatedAt.UTC().Format(time.RFC3339Nano),
		sess.LastActiveAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Session, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM sessions WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(body), &sess); err != nil {
		return nil, fmt.Errorf("unmarshaling session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}
	defer rows.Close()
	var out []*Session
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var sess Session
		if err := json.Unmarshal([]byte(body), &sess); err != nil {
			return nil, fmt.Errorf("unmarshaling session: %w", err)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}
