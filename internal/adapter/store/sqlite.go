package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"pdfrag/internal/domain"

	_ "modernc.org/sqlite"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
    position INTEGER PRIMARY KEY,
    content TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS vector_index (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    data BLOB NOT NULL
);
`

// SQLiteStore keeps the session in a single SQLite file using the pure-Go
// modernc.org/sqlite driver.
type SQLiteStore struct {
	path string
	db   *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) open() (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	s.db = db
	return db, nil
}

func (s *SQLiteStore) Save(session *domain.Session) error {
	stamp(session)

	meta, err := json.Marshal(session.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode session meta: %w", err)
	}

	db, err := s.open()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, sessionSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"meta", "chunks", "vector_index"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks(position, content) VALUES(?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, text := range session.Chunks {
		if _, err := stmt.ExecContext(ctx, i, text); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO vector_index(id, data) VALUES(1, ?)`, session.Index); err != nil {
		return fmt.Errorf("failed to insert index: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta(id, data) VALUES(1, ?)`, string(meta)); err != nil {
		return fmt.Errorf("failed to insert meta: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Load() (*domain.Session, bool, error) {
	if s.db == nil {
		if _, err := os.Stat(s.path); err != nil {
			if os.IsNotExist(err) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("failed to stat session: %w", err)
		}
	}

	db, err := s.open()
	if err != nil {
		return nil, false, err
	}
	ctx := context.Background()

	var session domain.Session

	var metaJSON string
	if err := db.QueryRowContext(ctx, `SELECT data FROM meta WHERE id = 1`).Scan(&metaJSON); err != nil {
		return nil, false, fmt.Errorf("%w: failed to read meta: %v", domain.ErrSessionCorrupt, err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &session.Meta); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrSessionCorrupt, err)
	}

	rows, err := db.QueryContext(ctx, `SELECT position, content FROM chunks ORDER BY position`)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to read chunks: %v", domain.ErrSessionCorrupt, err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos int
		var content string
		if err := rows.Scan(&pos, &content); err != nil {
			return nil, false, fmt.Errorf("%w: %v", domain.ErrSessionCorrupt, err)
		}
		if pos != len(session.Chunks) {
			return nil, false, fmt.Errorf("%w: chunk sequence broken at position %d", domain.ErrSessionCorrupt, len(session.Chunks))
		}
		session.Chunks = append(session.Chunks, content)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrSessionCorrupt, err)
	}

	if err := db.QueryRowContext(ctx, `SELECT data FROM vector_index WHERE id = 1`).Scan(&session.Index); err != nil {
		return nil, false, fmt.Errorf("%w: failed to read index: %v", domain.ErrSessionCorrupt, err)
	}

	if err := Validate(&session); err != nil {
		return nil, false, err
	}
	return &session, true, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
