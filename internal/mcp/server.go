package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/podcast-rag/internal/answer"
	"github.com/ziadkadry99/podcast-rag/internal/retrieval"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Retriever ranks transcript passages for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieval.Passage, error)
}

// Asker generates an in-character answer.
type Asker interface {
	Ask(ctx context.Context, question string) (*answer.Answer, error)
}

// Server wraps an MCP server that exposes transcript search tools.
type Server struct {
	retriever Retriever
	asker     Asker
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server. ask_hosts is only registered when
// asker is non-nil.
func NewServer(retriever Retriever, asker Asker) *Server {
	s := &Server{
		retriever: retriever,
		asker:     asker,
	}

	s.mcp = server.NewMCPServer(
		"podrag",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchTranscriptsTool, s.handleSearchTranscripts)
	if s.asker != nil {
		s.mcp.AddTool(askHostsTool, s.handleAskHosts)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
