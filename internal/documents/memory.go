package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/philippgille/chromem-go"
)

const collectionName = "it_documents"

// MemoryStore is an in-process Store backed by chromem-go, persisted as a gob
// file. It is meant for single-node deployments and local development.
type MemoryStore struct {
	db   *chromem.DB
	coll *chromem.Collection
}

// NewMemoryStore creates an empty store. embed is used only for documents
// upserted without an embedding.
func NewMemoryStore(embed chromem.EmbeddingFunc) (*MemoryStore, error) {
	return newMemoryStore(chromem.NewDB(), embed)
}

// LoadMemoryStore imports the gob file at path if it exists.
func LoadMemoryStore(path string, embed chromem.EmbeddingFunc) (*MemoryStore, error) {
	db := chromem.NewDB()
	if _, err := os.Stat(path); err == nil {
		if err := db.Import(path, ""); err != nil {
			return nil, fmt.Errorf("importing %s: %w", path, err)
		}
		slog.Info("loaded memory document store", "path", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return newMemoryStore(db, embed)
}

func newMemoryStore(db *chromem.DB, embed chromem.EmbeddingFunc) (*MemoryStore, error) {
	coll, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("opening collection: %w", err)
	}
	return &MemoryStore{db: db, coll: coll}, nil
}

func (s *MemoryStore) Match(ctx context.Context, embedding []float32, limit int, filter json.RawMessage) ([]Match, error) {
	where, err := flattenMetadata(filter)
	if err != nil {
		return nil, fmt.Errorf("parsing filter: %w", err)
	}

	// chromem rejects nResults larger than the collection
	n := min(limit, s.coll.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := s.coll.QueryEmbedding(ctx, embedding, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		meta := EmptyFilter
		if len(r.Metadata) > 0 {
			if meta, err = json.Marshal(r.Metadata); err != nil {
				return nil, fmt.Errorf("encoding metadata for %s: %w", r.ID, err)
			}
		}
		matches = append(matches, Match{
			ID:         r.ID,
			Content:    r.Content,
			Metadata:   meta,
			Similarity: float64(r.Similarity),
		})
	}
	return matches, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, docs ...Document) error {
	for _, d := range docs {
		meta, err := flattenMetadata(d.Metadata)
		if err != nil {
			return fmt.Errorf("metadata for %s: %w", d.ID, err)
		}
		err = s.coll.AddDocument(ctx, chromem.Document{
			ID:        d.ID,
			Content:   d.Content,
			Metadata:  meta,
			Embedding: d.Embedding,
		})
		if err != nil {
			return fmt.Errorf("adding document %s: %w", d.ID, err)
		}
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Count() int {
	return s.coll.Count()
}

// Export writes the store to path as an uncompressed gob file.
func (s *MemoryStore) Export(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := s.db.Export(path, false, ""); err != nil {
		return fmt.Errorf("exporting to %s: %w", path, err)
	}
	return nil
}

// flattenMetadata converts a flat JSON object into chromem's string map.
// Arrays of scalars are joined with commas; nested objects are rejected.
func flattenMetadata(raw json.RawMessage) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	if len(obj) == 0 {
		return nil, nil
	}

	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				s, err := scalarString(item)
				if err != nil {
					return nil, fmt.Errorf("key %q: %w", k, err)
				}
				parts = append(parts, s)
			}
			out[k] = strings.Join(parts, ",")
		default:
			s, err := scalarString(val)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = s
		}
	}
	return out, nil
}

func scalarString(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool, float64:
		return fmt.Sprint(val), nil
	default:
		return "", fmt.Errorf("unsupported metadata value %T", v)
	}
}
