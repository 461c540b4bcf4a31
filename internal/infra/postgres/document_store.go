package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-delivery-service/internal/document"
	"quiz-delivery-service/internal/domain"
)

const DefaultDocumentID = "default"

// DocumentStore keeps the document as one JSONB row of quiz_documents.
// JSONB does not preserve the encoded bytes, so the revision lives in its
// own column and guards every update.
type DocumentStore struct {
	pool *pgxpool.Pool
	id   string
}

func NewDocumentStore(pool *pgxpool.Pool, id string) *DocumentStore {
	if id == "" {
		id = DefaultDocumentID
	}
	return &DocumentStore{pool: pool, id: id}
}

func (s *DocumentStore) Load(ctx context.Context) (domain.Document, uint64, error) {
	var (
		rev int64
		raw []byte
	)
	err := s.pool.QueryRow(ctx, `SELECT revision, data FROM quiz_documents WHERE id=$1`, s.id).Scan(&rev, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.EmptyDocument(), document.NoRevision, nil
	}
	if err != nil {
		return domain.Document{}, document.NoRevision, fmt.Errorf("load document: %w", err)
	}
	doc, err := document.Decode(raw)
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

	var affected int64
	if expected == document.NoRevision {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO quiz_documents (id, revision, data) VALUES ($1, $2, $3::jsonb) ON CONFLICT (id) DO NOTHING`,
			s.id, int64(rev), string(data))
		if err != nil {
			return document.NoRevision, fmt.Errorf("insert document: %w", err)
		}
		affected = tag.RowsAffected()
	} else {
		tag, err := s.pool.Exec(ctx,
			`UPDATE quiz_documents SET revision=$2, data=$3::jsonb, updated_at=now() WHERE id=$1 AND revision=$4`,
			s.id, int64(rev), string(data), int64(expected))
		if err != nil {
			return document.NoRevision, fmt.Errorf("update document: %w", err)
		}
		affected = tag.RowsAffected()
	}

	if affected == 0 {
		return document.NoRevision, domain.ErrRevisionConflict
	}
	return rev, nil
}
