package ingest

import (
	"context"
	"log/slog"

	"github.com/sampurna/itsupport/internal/documents"
	"github.com/sampurna/itsupport/internal/embedding"
)

// UpsertBatchSize is how many documents go into one upsert.
const UpsertBatchSize = 100

// Seeder embeds documents that arrive without an embedding and upserts them
// by id.
type Seeder struct {
	emb   embedding.Embedder
	store documents.Writer
}

func NewSeeder(emb embedding.Embedder, store documents.Writer) *Seeder {
	return &Seeder{emb: emb, store: store}
}

// Seed returns how many documents were written. Documents that fail to
// embed are logged and skipped; a failed upsert stops the run.
func (s *Seeder) Seed(ctx context.Context, docs []documents.Document) (int, error) {
	written := 0
	batch := make([]documents.Document, 0, UpsertBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.store.Upsert(ctx, batch...); err != nil {
			return err
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, d := range docs {
		if len(d.Embedding) == 0 {
			vec, err := s.emb.Embed(ctx, d.Content)
			if err != nil {
				slog.Error("embedding document, skipping", "id", d.ID, "error", err)
				continue
			}
			d.Embedding = vec
		}
		batch = append(batch, d)
		if len(batch) == UpsertBatchSize {
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
