package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGQuerier implements Querier on top of a pgx connection pool.
// All queries are parameterized; vector values travel through the pgvector
// codec registered on the pool.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier wraps a pgx pool. The pool must have pgvector types
// registered (see app.Setup).
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

func (q *PGQuerier) UpsertDocument(ctx context.Context, arg UpsertParams) error {
	_, err := q.pool.Exec(ctx,
		`INSERT INTO documents (id, content, embedding, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET content = EXCLUDED.content,
		     embedding = EXCLUDED.embedding,
		     metadata = EXCLUDED.metadata`,
		arg.ID, arg.Content, arg.Embedding, arg.Metadata, arg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	return nil
}

func (q *PGQuerier) SearchDocuments(ctx context.Context, arg SearchParams) ([]SearchRow, error) {
	query := `SELECT id, content, metadata, created_at,
	                 1 - (embedding <=> $1) AS similarity
	          FROM documents
	          ORDER BY embedding <=> $1
	          LIMIT $2`
	args := []any{arg.Embedding, arg.Limit}

	if arg.FilterMetadata != nil {
		query = `SELECT id, content, metadata, created_at,
		                1 - (embedding <=> $1) AS similarity
		         FROM documents
		         WHERE metadata @> $2
		         ORDER BY embedding <=> $1
		         LIMIT $3`
		args = []any{arg.Embedding, arg.FilterMetadata, arg.Limit}
	}

	rows, err := q.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var results []SearchRow
	for rows.Next() {
		var row SearchRow
		if err := rows.Scan(&row.ID, &row.Content, &row.Metadata, &row.CreatedAt, &row.Similarity); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}

	return results, nil
}

func (q *PGQuerier) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := q.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

func (q *PGQuerier) DeleteDocument(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}
