// Package toolserver exposes the policy search over the Model Context
// Protocol so other assistants can reuse it.
package toolserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sampurna/itsupport/internal/composer"
)

// Searcher renders search results for a query; retrieval.Retriever.Search
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) string
}

type searchInput struct {
	Query string `json:"query" jsonschema:"a specific question or keyword, in English"`
}

// NewServer returns an MCP server with the search_it_documents tool.
func NewServer(searcher Searcher, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "itsupport", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        composer.ToolName,
		Description: "Search IT support documents, policies, and FAQs. Input should be a specific question or keyword.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, any, error) {
		slog.Debug("mcp search", "query", in.Query)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: searcher.Search(ctx, in.Query)}},
		}, nil, nil
	})

	return server
}

// Handler serves server over streamable HTTP.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}
