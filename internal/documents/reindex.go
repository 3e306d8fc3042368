package documents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sampurna/itsupport/internal/embedding"
)

// ReindexBatchSize is how many recomputed embeddings are committed at once.
const ReindexBatchSize = 100

// ReindexSource is a store whose embeddings can be recomputed in place.
type ReindexSource interface {
	ListContent(ctx context.Context) ([]Document, error)
	UpdateEmbeddings(ctx context.Context, docs []Document) error
}

// Reindex recomputes the embedding of every document from its content and
// writes them back in batches of batchSize. Batches committed before an
// error stay committed. It returns the number of documents written.
func Reindex(ctx context.Context, src ReindexSource, emb embedding.Embedder, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = ReindexBatchSize
	}

	docs, err := src.ListContent(ctx)
	if err != nil {
		return 0, err
	}
	total := len(docs)
	slog.Info("reindexing documents", "total", total)

	written := 0
	pending := make([]Document, 0, batchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := src.UpdateEmbeddings(ctx, pending); err != nil {
			return err
		}
		written += len(pending)
		pending = pending[:0]
		slog.Info("reindex progress", "processed", written, "total", total)
		return nil
	}

	for _, d := range docs {
		vec, err := emb.Embed(ctx, d.Content)
		if err != nil {
			return written, fmt.Errorf("embedding document %s: %w", d.ID, err)
		}
		pending = append(pending, Document{ID: d.ID, Embedding: vec})
		if len(pending) == batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}
