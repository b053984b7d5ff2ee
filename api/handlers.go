package api

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/agent"
	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/memory"
	"github.com/papercomputeco/treeagent/pkg/output"
	"github.com/papercomputeco/treeagent/pkg/summary"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NodesResponse lists memory nodes in pre-order.
type NodesResponse struct {
	Count int            `json:"count"`
	Nodes []*memory.Node `json:"nodes"`
}

// MessagesResponse is the context chain the model sees for a node.
type MessagesResponse struct {
	NodeID   int64         `json:"node_id"`
	Messages []llm.Message `json:"messages"`
}

// TodoResponse carries the next pending node, or null when the tree is done.
type TodoResponse struct {
	Todo *memory.Node `json:"todo"`
}

// ConceptsResponse lists stored concepts.
type ConceptsResponse struct {
	Count    int               `json:"count"`
	Concepts []summary.Concept `json:"concepts"`
}

// ShowResponse is the rendered visible summary memory.
type ShowResponse struct {
	Memory string `json:"memory"`
}

// RunRequest starts a run.
type RunRequest struct {
	Input   string `json:"input"`
	ForNode int64  `json:"for_node,omitempty"`
}

// RunResponse reports how a run ended and everything it emitted.
type RunResponse struct {
	Result  agent.Result `json:"result"`
	Output  string       `json:"output"`
	Partial []string     `json:"partial,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleTree renders the tree as indented text.
func (s *Server) handleTree(c *fiber.Ctx) error {
	return c.SendString(s.deps.Memory.String())
}

func (s *Server) handleListNodes(c *fiber.Ctx) error {
	nodes := s.deps.Memory.Nodes()
	return c.JSON(NodesResponse{
		Count: len(nodes),
		Nodes: nodes,
	})
}

func (s *Server) handleGetNode(c *fiber.Ctx) error {
	id, ok := nodeID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid node id"})
	}

	node, err := s.deps.Memory.GetNode(id)
	if err != nil {
		return s.nodeError(c, err)
	}

	return c.JSON(node)
}

func (s *Server) handleMessages(c *fiber.Ctx) error {
	id, ok := nodeID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid node id"})
	}

	messages, err := s.deps.Memory.RelatedMessages(id)
	if err != nil {
		return s.nodeError(c, err)
	}

	return c.JSON(MessagesResponse{
		NodeID:   id,
		Messages: messages,
	})
}

func (s *Server) handleTodo(c *fiber.Ctx) error {
	return c.JSON(TodoResponse{Todo: s.deps.Memory.TodoNode()})
}

func (s *Server) handleListConcepts(c *fiber.Ctx) error {
	if s.deps.Concepts == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "summary memory not configured"})
	}

	concepts := s.deps.Concepts.Concepts()
	return c.JSON(ConceptsResponse{
		Count:    len(concepts),
		Concepts: concepts,
	})
}

func (s *Server) handleShowConcepts(c *fiber.Ctx) error {
	if s.deps.Concepts == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "summary memory not configured"})
	}

	return c.JSON(ShowResponse{Memory: s.deps.Concepts.ShowMemory()})
}

// handleRun runs the agent to completion and returns its collected output.
func (s *Server) handleRun(c *fiber.Ctx) error {
	if s.deps.Runner == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "agent not configured"})
	}

	var req RunRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
		}
	}

	var out strings.Builder
	var partial []string
	opts := []agent.RunOption{
		agent.WithOutput(func(_ context.Context, o output.Output) error {
			switch o.Kind {
			case output.KindToken:
				out.WriteString(o.Text)
			case output.KindPartial:
				partial = append(partial, o.Text)
			}
			return nil
		}),
	}
	if req.Input != "" {
		opts = append(opts, agent.WithInput(req.Input))
	}
	if req.ForNode != 0 {
		opts = append(opts, agent.WithForNode(req.ForNode))
	}

	res, err := s.deps.Runner.Run(c.UserContext(), opts...)
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrRunning):
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
		case errors.Is(err, memory.ErrNodeNotFound):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
		default:
			s.logger.Error("run failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "run failed"})
		}
	}

	return c.JSON(RunResponse{
		Result:  res,
		Output:  out.String(),
		Partial: partial,
	})
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	if s.deps.Runner == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "agent not configured"})
	}

	s.deps.Runner.Stop()
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) nodeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, memory.ErrNodeNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "node not found"})
	}

	s.logger.Error("memory lookup failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "memory lookup failed"})
}

func nodeID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil
}
