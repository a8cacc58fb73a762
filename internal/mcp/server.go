// Package mcp exposes document retrieval and the time tool to MCP clients.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docchat/docchat/internal/tools"
)

// Version is the MCP server version
const Version = "0.1.0"

// ErrMissingDocuments is returned when no document querier is wired
var ErrMissingDocuments = errors.New("document querier is required")

// DocumentQuerier answers document questions with retrieved context
type DocumentQuerier interface {
	QueryDocuments(ctx context.Context, query string) (string, error)
}

// ToolExecutor runs catalog tools
type ToolExecutor interface {
	Execute(ctx context.Context, call tools.Call) (string, error)
}

// Server is the MCP server for docchat
type Server struct {
	documents DocumentQuerier
	executor  ToolExecutor
	logger    *log.Logger
	server    *mcp.Server
}

// NewServer creates a server. A nil executor leaves out the time tool.
func NewServer(documents DocumentQuerier, executor ToolExecutor, logger *log.Logger) (*Server, error) {
	if documents == nil {
		return nil, ErrMissingDocuments
	}

	s := &Server{
		documents: documents,
		executor:  executor,
		logger:    logger,
		server:    mcp.NewServer(&mcp.Implementation{Name: "docchat", Version: Version}, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is done or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
