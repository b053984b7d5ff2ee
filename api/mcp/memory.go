package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/memory"
)

var (
	memoryTreeToolName    = "memory_tree"
	memoryTreeDescription = "Render the agent's memory tree, one node per line with its id, role, action and a [x] mark once it succeeded."

	memoryTodoToolName    = "memory_todo"
	memoryTodoDescription = "Return the next pending node the agent would execute, or nothing when the tree is complete."

	memoryMessagesToolName    = "memory_messages"
	memoryMessagesDescription = "Return the context chain the model sees for a node: every ancestor's earlier siblings and the ancestor itself, root first."
)

// MemoryTreeInput takes no arguments.
type MemoryTreeInput struct{}

// MemoryTreeOutput is the rendered tree.
type MemoryTreeOutput struct {
	Tree  string `json:"tree"`
	Nodes int    `json:"nodes"`
}

// MemoryTodoInput takes no arguments.
type MemoryTodoInput struct{}

// MemoryTodoOutput carries the next pending node, if any.
type MemoryTodoOutput struct {
	Todo *memory.Node `json:"todo,omitempty"`
}

// MemoryMessagesInput represents the input arguments for the memory_messages tool.
type MemoryMessagesInput struct {
	NodeID int64 `json:"node_id" jsonschema:"the id of the memory node to build the context chain for"`
}

// MemoryMessagesOutput is the context chain of a node.
type MemoryMessagesOutput struct {
	NodeID   int64         `json:"node_id"`
	Messages []llm.Message `json:"messages"`
}

func (s *Server) handleMemoryTree(_ context.Context, _ *mcp.CallToolRequest, _ MemoryTreeInput) (*mcp.CallToolResult, MemoryTreeOutput, error) {
	output := MemoryTreeOutput{
		Tree:  s.config.Memory.String(),
		Nodes: s.config.Memory.Len(),
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: output.Tree},
		},
	}, output, nil
}

func (s *Server) handleMemoryTodo(_ context.Context, _ *mcp.CallToolRequest, _ MemoryTodoInput) (*mcp.CallToolResult, MemoryTodoOutput, error) {
	output := MemoryTodoOutput{Todo: s.config.Memory.TodoNode()}
	return jsonResult(s, output)
}

func (s *Server) handleMemoryMessages(_ context.Context, _ *mcp.CallToolRequest, input MemoryMessagesInput) (*mcp.CallToolResult, MemoryMessagesOutput, error) {
	s.config.Logger.Debug("MCP memory messages request",
		zap.Int64("node_id", input.NodeID),
	)

	messages, err := s.config.Memory.RelatedMessages(input.NodeID)
	if err != nil {
		if errors.Is(err, memory.ErrNodeNotFound) {
			return errorResult(fmt.Sprintf("node %d not found", input.NodeID)), MemoryMessagesOutput{}, nil
		}
		return errorResult(fmt.Sprintf("Failed to build messages: %v", err)), MemoryMessagesOutput{}, nil
	}

	return jsonResult(s, MemoryMessagesOutput{
		NodeID:   input.NodeID,
		Messages: messages,
	})
}

// jsonResult serializes the structured output as JSON for the text field, so
// clients that ignore structured content still get the data.
func jsonResult[T any](s *Server, output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		s.config.Logger.Error("failed to marshal tool output", zap.Error(err))
		var zero T
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
