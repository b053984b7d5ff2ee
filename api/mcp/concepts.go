package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	conceptsShowToolName    = "concepts_show"
	conceptsShowDescription = "Return the agent's visible summary memory. Optionally reveal more concepts by title first; unknown titles are ignored."
)

// ConceptsShowInput represents the input arguments for the concepts_show tool.
type ConceptsShowInput struct {
	Reveal []string `json:"reveal,omitempty" jsonschema:"concept titles to make visible before rendering"`
}

// ConceptsShowOutput is the rendered visible memory plus every known title.
type ConceptsShowOutput struct {
	Memory string   `json:"memory"`
	Titles []string `json:"titles"`
}

func (s *Server) handleConceptsShow(ctx context.Context, _ *mcp.CallToolRequest, input ConceptsShowInput) (*mcp.CallToolResult, ConceptsShowOutput, error) {
	store := s.config.Concepts

	if len(input.Reveal) > 0 {
		if _, err := store.Reveal(ctx, input.Reveal...); err != nil {
			return errorResult("Failed to reveal concepts: " + err.Error()), ConceptsShowOutput{}, nil
		}
	}

	return jsonResult(s, ConceptsShowOutput{
		Memory: store.ShowMemory(),
		Titles: store.Titles(),
	})
}
