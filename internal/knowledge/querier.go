package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// SQL for the PGQuerier. All statements are parameterized; the schema
// they target lives in db/migrations.
const (
	upsertCollectionSQL = `
		INSERT INTO collections (name, metadata)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET metadata = EXCLUDED.metadata`

	getCollectionSQL = `
		SELECT name, metadata FROM collections WHERE name = $1`

	deleteCollectionSQL = `
		DELETE FROM collections WHERE name = $1`

	listCollectionsSQL = `
		SELECT name, metadata FROM collections ORDER BY name`

	upsertDocumentSQL = `
		INSERT INTO documents (collection, id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (collection, id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`

	searchDocumentsSQL = `
		SELECT id, content, metadata
		FROM documents
		WHERE collection = $1
		ORDER BY embedding <=> $2
		LIMIT $3`

	sampleDocumentsSQL = `
		SELECT id, content, metadata
		FROM documents
		WHERE collection = $1
		ORDER BY created_at, id
		LIMIT $2`

	countDocumentsSQL = `
		SELECT COUNT(*) FROM documents WHERE collection = $1`
)

// PGQuerier implements Querier over a pgx connection pool.
//
// PGQuerier is safe for concurrent use; the pool handles connection
// management.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a PGQuerier over the given pool. The pool's
// lifecycle is managed by the caller.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

// UpsertCollection implements Querier.
func (q *PGQuerier) UpsertCollection(ctx context.Context, name string, metadata []byte) error {
	_, err := q.pool.Exec(ctx, upsertCollectionSQL, name, metadata)
	return err
}

// GetCollection implements Querier.
func (q *PGQuerier) GetCollection(ctx context.Context, name string) (CollectionRow, error) {
	var row CollectionRow
	err := q.pool.QueryRow(ctx, getCollectionSQL, name).Scan(&row.Name, &row.Metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return CollectionRow{}, ErrCollectionNotFound
	}
	return row, err
}

// DeleteCollection implements Querier. Documents are removed by the
// ON DELETE CASCADE foreign key.
func (q *PGQuerier) DeleteCollection(ctx context.Context, name string) (bool, error) {
	tag, err := q.pool.Exec(ctx, deleteCollectionSQL, name)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListCollections implements Querier.
func (q *PGQuerier) ListCollections(ctx context.Context) ([]CollectionRow, error) {
	rows, err := q.pool.Query(ctx, listCollectionsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CollectionRow
	for rows.Next() {
		var row CollectionRow
		if err := rows.Scan(&row.Name, &row.Metadata); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UpsertDocuments implements Querier. All rows go through a single
// transaction using a pgx batch, so a failed insert leaves the
// collection unchanged.
func (q *PGQuerier) UpsertDocuments(ctx context.Context, collection string, docRows []DocumentRow) error {
	if len(docRows) == 0 {
		return nil
	}

	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, row := range docRows {
		batch.Queue(upsertDocumentSQL, collection, row.ID, row.Content, row.Embedding, row.Metadata)
	}

	results := tx.SendBatch(ctx, batch)
	for range docRows {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to upsert document: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// SearchDocuments implements Querier. Results come back nearest first
// by cosine distance.
func (q *PGQuerier) SearchDocuments(ctx context.Context, collection string, embedding pgvector.Vector, limit int) ([]DocumentRow, error) {
	rows, err := q.pool.Query(ctx, searchDocumentsSQL, collection, embedding, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocumentRows(rows)
}

// SampleDocuments implements Querier.
func (q *PGQuerier) SampleDocuments(ctx context.Context, collection string, limit int) ([]DocumentRow, error) {
	rows, err := q.pool.Query(ctx, sampleDocumentsSQL, collection, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocumentRows(rows)
}

// CountDocuments implements Querier.
func (q *PGQuerier) CountDocuments(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := q.pool.QueryRow(ctx, countDocumentsSQL, collection).Scan(&count)
	return count, err
}

func scanDocumentRows(rows pgx.Rows) ([]DocumentRow, error) {
	var out []DocumentRow
	for rows.Next() {
		var row DocumentRow
		if err := rows.Scan(&row.ID, &row.Content, &row.Metadata); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
