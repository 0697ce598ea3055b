package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/podcast-rag/internal/retrieval"
)

const defaultLimit = 10

// handleSearchTranscripts ranks transcript passages for the query.
func (s *Server) handleSearchTranscripts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}

	passages, err := s.retriever.Retrieve(ctx, query, limit)
	if errors.Is(err, retrieval.ErrEmptyQuery) {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(passages) == 0 {
		return mcp.NewToolResultText("No passages found. The transcripts may not be indexed yet. Run `podrag ingest` to index them."), nil
	}

	return mcp.NewToolResultText(formatPassages(passages)), nil
}

// handleAskHosts answers a question in the hosts' voice.
func (s *Server) handleAskHosts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	ans, err := s.asker.Ask(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}
	return mcp.NewToolResultText(ans.Response), nil
}

// formatPassages renders passages for agent consumption.
func formatPassages(passages []retrieval.Passage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d passage(s):\n", len(passages))

	for i, p := range passages {
		fmt.Fprintf(&sb, "\n--- Passage %d (id %d) ---\n", i+1, p.ID)
		fmt.Fprintf(&sb, "Similarity: %.1f%%\n\n", p.Score*100)
		sb.WriteString(p.Text)
		sb.WriteString("\n")
	}

	return sb.String()
}
