// Package sqlite keeps the document in an embedded SQLite database, for
// single-host deployments that want a file with crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // driver: sqlite

	"quiz-delivery-service/internal/document"
	"quiz-delivery-service/internal/domain"
)

const (
	DefaultDSN        = "file:quiz.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
	DefaultDocumentID = "default"
)

const schema = `
CREATE TABLE IF NOT EXISTS quiz_documents (
  id TEXT PRIMARY KEY,
  revision INTEGER NOT NULL,
  data TEXT NOT NULL,
  updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);
`

// Open opens the database and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

type DocumentStore struct {
	db *sql.DB
	id string
}

func NewDocumentStore(db *sql.DB, id string) *DocumentStore {
	if id == "" {
		id = DefaultDocumentID
	}
	return &DocumentStore{db: db, id: id}
}

func (s *DocumentStore) Load(ctx context.Context) (domain.Document, uint64, error) {
	var (
		rev  int64
		data string
	)
	err := s.db.QueryRowContext(ctx, `SELECT revision, data FROM quiz_documents WHERE id = ?`, s.id).Scan(&rev, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EmptyDocument(), document.NoRevision, nil
	}
	if err != nil {
		return domain.Document{}, document.NoRevision, fmt.Errorf("load document: %w", err)
	}
	doc, err := document.Decode([]byte(data))
	if err != nil {
		return domain.Document{}, document.NoRevision, err
	}
	return doc, uint64(rev), nil
}

func (s *DocumentStore) Save(ctx context.Context, doc domain.Document, expected uint64) (uint64, error) {
	data, rev, err := document.EncodeWithRevision(doc)
	if err != nil {
		return document.NoRevision, err
	}

	var res sql.Result
	if expected == document.NoRevision {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO quiz_documents (id, revision, data) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
			s.id, int64(rev), string(data))
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE quiz_documents SET revision = ?, data = ?, updated_at = strftime('%s','now') WHERE id = ? AND revision = ?`,
			int64(rev), string(data), s.id, int64(expected))
	}
	if err != nil {
		return document.NoRevision, fmt.Errorf("save document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return document.NoRevision, fmt.Errorf("save document: %w", err)
	}
	if affected == 0 {
		return document.NoRevision, domain.ErrRevisionConflict
	}
	return rev, nil
}
