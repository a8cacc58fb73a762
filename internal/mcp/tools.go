package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docchat/docchat/internal/tools"
)

// QueryInput is the input schema for query_documents
type QueryInput struct {
	Query string `json:"query" jsonschema:"the question to find relevant document content for"`
}

// QueryOutput carries the retrieved content
type QueryOutput struct {
	Content string `json:"content"`
}

// TimeInput is the input schema for get_time_in_timezone
type TimeInput struct {
	Timezone string `json:"timezone" jsonschema:"IANA timezone such as America/New_York or Europe/London"`
}

// TimeOutput carries the formatted local time
type TimeOutput struct {
	Time string `json:"time"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_documents",
		Description: "Retrieve the uploaded document passages most relevant to a question",
	}, s.handleQuery)

	if s.executor != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        tools.TimeInTimezoneName,
			Description: "Get the current time in a specific timezone",
		}, s.handleTime)
	}
}

func (s *Server) handleQuery(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	content, err := s.documents.QueryDocuments(ctx, input.Query)
	if err != nil {
		s.logger.Error("query_documents failed", "err", err)
		return nil, QueryOutput{}, err
	}
	return nil, QueryOutput{Content: content}, nil
}

func (s *Server) handleTime(ctx context.Context, _ *mcp.CallToolRequest, input TimeInput) (*mcp.CallToolResult, TimeOutput, error) {
	out, err := s.executor.Execute(ctx, tools.TimeInTimezoneCall{Timezone: input.Timezone})
	if err != nil {
		return nil, TimeOutput{}, err
	}
	return nil, TimeOutput{Time: out}, nil
}
