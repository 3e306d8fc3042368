package documents

import (
	"context"
	"encoding/json"
)

// Document is a policy passage stored in it_documents.
type Document struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata"`
	Embedding []float32       `json:"embedding,omitempty"`
}

// Match is a document returned by a similarity search.
type Match struct {
	ID         string          `json:"id"`
	Content    string          `json:"content"`
	Metadata   json.RawMessage `json:"metadata"`
	Similarity float64         `json:"similarity"`
}

// EmptyFilter matches every document.
var EmptyFilter = json.RawMessage(`{}`)

// Matcher runs a similarity search. Rows come back highest similarity
// first; zero rows is not an error.
type Matcher interface {
	Match(ctx context.Context, embedding []float32, limit int, filter json.RawMessage) ([]Match, error)
}

// Writer upserts documents by id.
type Writer interface {
	Upsert(ctx context.Context, docs ...Document) error
}

// Store is the read/write surface shared by the postgres and memory backends.
type Store interface {
	Matcher
	Writer
	Ping(ctx context.Context) error
}

func metadataOrEmpty(m json.RawMessage) json.RawMessage {
	if len(m) == 0 {
		return EmptyFilter
	}
	return m
}
