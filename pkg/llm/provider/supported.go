package provider

// Supported provider type constants
const (
	Anthropic = "anthropic"
	Gemini    = "gemini"
	Ollama    = "ollama"
	OpenAI    = "openai"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, Gemini, Ollama, OpenAI}
}
