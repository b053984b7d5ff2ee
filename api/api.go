package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/agent"
	"github.com/papercomputeco/treeagent/pkg/memory"
	"github.com/papercomputeco/treeagent/pkg/summary"
)

// Runner drives the agent. *agent.Agent satisfies it.
type Runner interface {
	Run(ctx context.Context, opts ...agent.RunOption) (agent.Result, error)
	Stop()
}

// Deps are the components the server reads from and drives.
type Deps struct {
	Memory *memory.Memory

	// Concepts is optional; concept routes answer 404 without it.
	Concepts *summary.Store

	// Runner is optional; run routes answer 404 without it.
	Runner Runner

	// MCP is mounted under /mcp when set.
	MCP http.Handler
}

// Server is the API server for inspecting and driving a treeagent workspace.
type Server struct {
	config Config
	deps   Deps
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The memory tree is injected so it can be shared with the agent running in
// the same process.
func NewServer(config Config, deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Memory == nil {
		return nil, errors.New("memory is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		deps:   deps,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	app.Get("/memory", s.handleTree)
	app.Get("/memory/nodes", s.handleListNodes)
	app.Get("/memory/nodes/:id", s.handleGetNode)
	app.Get("/memory/nodes/:id/messages", s.handleMessages)
	app.Get("/memory/todo", s.handleTodo)

	app.Get("/concepts", s.handleListConcepts)
	app.Get("/concepts/show", s.handleShowConcepts)

	app.Post("/run", s.handleRun)
	app.Post("/stop", s.handleStop)

	if deps.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(deps.MCP))
	}

	return s, nil
}

// App exposes the fiber app for in-process requests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
