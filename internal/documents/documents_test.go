package documents

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	s, err := NewMemoryStore(nil)
	require.NoError(t, err)
	return s
}

func seedMemory(t *testing.T, s *MemoryStore) {
	t.Helper()
	err := s.Upsert(context.Background(),
		Document{ID: "loss-1", Content: "Report lost devices within 24 hours.", Metadata: json.RawMessage(`{"source":"asset.md","tags":["asset","loss"]}`), Embedding: []float32{1, 0, 0}},
		Document{ID: "vpn-1", Content: "Install the approved VPN client.", Metadata: json.RawMessage(`{"source":"vpn.md"}`), Embedding: []float32{0, 1, 0}},
		Document{ID: "pwd-1", Content: "Passwords rotate every 90 days.", Embedding: []float32{0.7, 0.7, 0}},
	)
	require.NoError(t, err)
}

func TestMemoryStore_MatchOrdersBySimilarity(t *testing.T) {
	s := newTestMemoryStore(t)
	seedMemory(t, s)

	matches, err := s.Match(context.Background(), []float32{1, 0.1, 0}, 4, EmptyFilter)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "loss-1", matches[0].ID)
	assert.Equal(t, "pwd-1", matches[1].ID)
	assert.Equal(t, "vpn-1", matches[2].ID)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)
}

func TestMemoryStore_LimitAndFilter(t *testing.T) {
	s := newTestMemoryStore(t)
	seedMemory(t, s)
	ctx := context.Background()

	matches, err := s.Match(ctx, []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = s.Match(ctx, []float32{1, 0, 0}, 4, json.RawMessage(`{"source":"vpn.md"}`))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "vpn-1", matches[0].ID)
}

func TestMemoryStore_EmptyCollectionReturnsNoRows(t *testing.T) {
	s := newTestMemoryStore(t)

	matches, err := s.Match(context.Background(), []float32{1, 0, 0}, 4, EmptyFilter)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryStore_UpsertReplacesByID(t *testing.T) {
	s := newTestMemoryStore(t)
	seedMemory(t, s)
	ctx := context.Background()

	err := s.Upsert(ctx, Document{ID: "vpn-1", Content: "Use the new VPN portal.", Embedding: []float32{0, 1, 0}})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count())

	matches, err := s.Match(ctx, []float32{0, 1, 0}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "Use the new VPN portal.", matches[0].Content)
}

func TestMemoryStore_ExportAndLoad(t *testing.T) {
	s := newTestMemoryStore(t)
	seedMemory(t, s)

	path := filepath.Join(t.TempDir(), "data", "docs.gob")
	require.NoError(t, s.Export(path))

	loaded, err := LoadMemoryStore(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Count())

	missing, err := LoadMemoryStore(filepath.Join(t.TempDir(), "none.gob"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, missing.Count())
}

func TestFlattenMetadata(t *testing.T) {
	got, err := flattenMetadata(json.RawMessage(`{"source":"a.md","tags":["x","y"],"version":2,"draft":false}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"source": "a.md", "tags": "x,y", "version": "2", "draft": "false"}, got)

	got, err = flattenMetadata(EmptyFilter)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = flattenMetadata(json.RawMessage(`{"owner":{"team":"it"}}`))
	assert.Error(t, err)
}

type fakeReindexSource struct {
	docs    []Document
	batches [][]Document
	failOn  int
}

func (f *fakeReindexSource) ListContent(context.Context) ([]Document, error) {
	return f.docs, nil
}

func (f *fakeReindexSource) UpdateEmbeddings(_ context.Context, docs []Document) error {
	if f.failOn > 0 && len(f.batches)+1 == f.failOn {
		return errors.New("connection reset")
	}
	f.batches = append(f.batches, append([]Document(nil), docs...))
	return nil
}

type lengthEmbedder struct{ failFor string }

func (e lengthEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.failFor != "" && strings.Contains(text, e.failFor) {
		return nil, errors.New("embedding model unavailable")
	}
	return []float32{float32(len(text))}, nil
}

func makeDocs(n int) []Document {
	docs := make([]Document, n)
	for i := range docs {
		docs[i] = Document{ID: strings.Repeat("d", i+1), Content: strings.Repeat("x", i+1)}
	}
	return docs
}

func TestReindex_CommitsInBatches(t *testing.T) {
	src := &fakeReindexSource{docs: makeDocs(250)}

	n, err := Reindex(context.Background(), src, lengthEmbedder{}, 100)
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	require.Len(t, src.batches, 3)
	assert.Len(t, src.batches[0], 100)
	assert.Len(t, src.batches[1], 100)
	assert.Len(t, src.batches[2], 50)
	assert.Equal(t, []float32{3}, src.batches[0][2].Embedding)
}

func TestReindex_KeepsCommittedBatchesOnError(t *testing.T) {
	docs := makeDocs(5)
	docs[3].Content = "boom"
	src := &fakeReindexSource{docs: docs}

	n, err := Reindex(context.Background(), src, lengthEmbedder{failFor: "boom"}, 2)
	assert.ErrorContains(t, err, "embedding model unavailable")
	assert.Equal(t, 2, n)
	assert.Len(t, src.batches, 1)
}

func TestReindex_UpdateFailure(t *testing.T) {
	src := &fakeReindexSource{docs: makeDocs(3), failOn: 2}

	n, err := Reindex(context.Background(), src, lengthEmbedder{}, 2)
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 2, n)
}
