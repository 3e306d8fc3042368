package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sampurna/itsupport/internal/documents"
)

// DefaultChunkSize is the merge threshold for markdown sections, in bytes.
const DefaultChunkSize = 800

// MarkdownDocuments chunks one markdown file. rel is the path relative to
// the ingest root; chunk ids are "<rel>#<n>" starting at 1.
func MarkdownDocuments(rel string, source []byte, chunkSize int) ([]documents.Document, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	rel = filepath.ToSlash(rel)

	fm, body, err := SplitFrontMatter(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}

	sections, h1 := Parse(body)
	title := fm.Title
	if title == "" {
		title = h1
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	}

	meta := map[string]any{"source": rel, "title": title}
	if len(fm.Tags) > 0 {
		meta["tags"] = fm.Tags
	}
	if fm.Owner != "" {
		meta["owner"] = fm.Owner
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("%s: marshaling metadata: %w", rel, err)
	}

	chunks := Compress(sections, chunkSize)
	docs := make([]documents.Document, 0, len(chunks))
	for i, c := range chunks {
		docs = append(docs, documents.Document{
			ID:       fmt.Sprintf("%s#%d", rel, i+1),
			Content:  c,
			Metadata: metadata,
		})
	}
	return docs, nil
}

// IsMarkdown reports whether path has a markdown extension.
func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// LoadMarkdownDir chunks every markdown file under root. Files that fail to
// parse are logged and skipped.
func LoadMarkdownDir(root string, chunkSize int) ([]documents.Document, error) {
	var docs []documents.Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsMarkdown(path) {
			return nil
		}
		fileDocs, err := loadMarkdownFile(root, path, chunkSize)
		if err != nil {
			slog.Warn("skipping markdown file", "path", path, "error", err)
			return nil
		}
		docs = append(docs, fileDocs...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return docs, nil
}

func loadMarkdownFile(root, path string, chunkSize int) ([]documents.Document, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return MarkdownDocuments(rel, source, chunkSize)
}

// ReadCSV reads rows with the columns id, content, metadata and embedding
// (the last two optional). Embeddings are JSON arrays, as pgvector prints
// them. Bad rows are logged and skipped; the count of skipped rows is
// returned.
func ReadCSV(r io.Reader) ([]documents.Document, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"id", "content"} {
		if _, ok := col[required]; !ok {
			return nil, 0, fmt.Errorf("csv is missing the %q column", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var (
		docs    []documents.Document
		skipped int
		line    = 1
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			slog.Warn("skipping csv row", "line", line, "error", err)
			skipped++
			continue
		}

		doc, err := csvDocument(field(rec, "id"), field(rec, "content"), field(rec, "metadata"), field(rec, "embedding"))
		if err != nil {
			slog.Warn("skipping csv row", "line", line, "error", err)
			skipped++
			continue
		}
		docs = append(docs, doc)
	}
	return docs, skipped, nil
}

func csvDocument(id, content, metadata, embedding string) (documents.Document, error) {
	if id == "" {
		return documents.Document{}, errors.New("empty id")
	}
	if content == "" {
		return documents.Document{}, fmt.Errorf("document %s: empty content", id)
	}

	doc := documents.Document{ID: id, Content: content, Metadata: documents.EmptyFilter}
	if metadata != "" {
		if !json.Valid([]byte(metadata)) {
			return documents.Document{}, fmt.Errorf("document %s: metadata is not valid JSON", id)
		}
		doc.Metadata = json.RawMessage(metadata)
	}
	if embedding != "" {
		if err := json.Unmarshal([]byte(embedding), &doc.Embedding); err != nil {
			return documents.Document{}, fmt.Errorf("document %s: parsing embedding: %w", id, err)
		}
	}
	return doc, nil
}
