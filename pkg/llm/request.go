package llm

// ChatRequest is the provider-agnostic form of a streaming chat call. The
// response cache hashes it, so field order and tags are part of the cache key.
type ChatRequest struct {
	// Provider name (e.g., "ollama", "openai", "gemini")
	Provider string `json:"provider"`

	// Model name (e.g., "llama3", "gpt-4o")
	Model string `json:"model"`

	// Conversation messages
	Messages []Message `json:"messages"`
}
