// Package provider builds the configured llm.Client.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/treeagent/pkg/llm/provider/gemini"
	"github.com/papercomputeco/treeagent/pkg/llm/provider/ollama"
	"github.com/papercomputeco/treeagent/pkg/llm/provider/openai"
)

// Config selects and configures an LLM transport.
type Config struct {
	// Provider is one of SupportedProviders.
	Provider string

	// Target overrides the provider's base URL.
	Target string

	Model  string
	APIKey string

	// HTTPClient is used by the HTTP transports; nil means http.DefaultClient.
	HTTPClient *http.Client

	// Transcript receives raw wire bytes where the transport supports it.
	Transcript io.Writer
}

// New creates a new llm.Client for the given provider type.
// Returns an error wrapping llm.ErrNoProvider if the type is not recognized.
func New(ctx context.Context, cfg Config) (llm.Client, error) {
	switch cfg.Provider {
	case Ollama, "":
		return ollama.New(cfg.Target, cfg.Model, cfg.HTTPClient), nil
	case OpenAI:
		c := openai.New(cfg.Target, cfg.Model, cfg.APIKey, cfg.HTTPClient)
		c.Transcript = cfg.Transcript
		return c, nil
	case Anthropic:
		return anthropic.New(cfg.Target, cfg.Model, cfg.APIKey, cfg.HTTPClient), nil
	case Gemini:
		return gemini.New(ctx, cfg.Target, cfg.Model, cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %q (supported: %v)", llm.ErrNoProvider, cfg.Provider, SupportedProviders())
	}
}
