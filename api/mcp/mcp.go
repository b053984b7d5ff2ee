// Package mcp provides an MCP (Model Context Protocol) server exposing the
// treeagent memory tree and summary memory as tools.
package mcp

import (
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/memory"
	"github.com/papercomputeco/treeagent/pkg/summary"
	"github.com/papercomputeco/treeagent/pkg/utils"
)

type Config struct {
	// Memory is the conversation tree served by the memory tools
	Memory *memory.Memory

	// Concepts enables the concept tools (optional)
	Concepts *summary.Store

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory and concept tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "treeagent",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Memory == nil {
			return nil, errors.New("memory is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        memoryTreeToolName,
			Description: memoryTreeDescription,
		}, s.handleMemoryTree)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        memoryTodoToolName,
			Description: memoryTodoDescription,
		}, s.handleMemoryTodo)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        memoryMessagesToolName,
			Description: memoryMessagesDescription,
		}, s.handleMemoryMessages)

		if c.Concepts != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        conceptsShowToolName,
				Description: conceptsShowDescription,
			}, s.handleConceptsShow)
		}
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// errorResult wraps a tool failure the way MCP clients expect it: as a
// successful call flagged IsError.
func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
