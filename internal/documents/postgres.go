package documents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// PostgresStore implements Store on it_documents using pgx + pgvector.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new document store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Match(ctx context.Context, embedding []float32, limit int, filter json.RawMessage) ([]Match, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, content, metadata, similarity
		 FROM match_it_documents($1::vector, $2, $3::jsonb)`,
		pgvector.NewVector(embedding), limit, metadataOrEmpty(filter),
	)
	if err != nil {
		return nil, fmt.Errorf("matching it documents: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Content, &m.Metadata, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

const upsertSQL = `INSERT INTO it_documents (id, content, metadata, embedding)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET content = EXCLUDED.content,
	    metadata = EXCLUDED.metadata,
	    embedding = EXCLUDED.embedding,
	    updated_at = NOW()`

// Upsert writes docs in one batch. A document without an embedding is stored
// with a NULL embedding and is skipped by Match until reindexed.
func (s *PostgresStore) Upsert(ctx context.Context, docs ...Document) error {
	if len(docs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, d := range docs {
		var vec any
		if len(d.Embedding) > 0 {
			vec = pgvector.NewVector(d.Embedding)
		}
		batch.Queue(upsertSQL, d.ID, d.Content, metadataOrEmpty(d.Metadata), vec)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for _, d := range docs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upserting document %s: %w", d.ID, err)
		}
	}
	return nil
}

// ListContent returns id and content of every document, for reindexing.
func (s *PostgresStore) ListContent(ctx context.Context) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, content FROM it_documents WHERE content IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Content); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateEmbeddings writes new embeddings for docs in a single transaction.
func (s *PostgresStore) UpdateEmbeddings(ctx context.Context, docs []Document) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range docs {
		_, err := tx.Exec(ctx,
			`UPDATE it_documents SET embedding = $1, updated_at = NOW() WHERE id = $2`,
			pgvector.NewVector(d.Embedding), d.ID,
		)
		if err != nil {
			return fmt.Errorf("updating embedding for %s: %w", d.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// DeleteSource removes every chunk ingested from the given source file.
func (s *PostgresStore) DeleteSource(ctx context.Context, source string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM it_documents WHERE metadata->>'source' = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("deleting documents for %s: %w", source, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
