package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchTranscriptsTool defines the search_transcripts MCP tool.
var searchTranscriptsTool = mcp.NewTool("search_transcripts",
	mcp.WithDescription("Search podcast transcripts semantically. Returns the most relevant passages of dialogue, best match first."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 10)"),
	),
)

// askHostsTool defines the ask_hosts MCP tool.
var askHostsTool = mcp.NewTool("ask_hosts",
	mcp.WithDescription("Ask the podcast hosts a question. The answer is generated in their style from the most relevant transcript passages."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Question for the hosts"),
	),
)
