// Package api provides an HTTP API server for inspecting the memory tree and
// concept store and for driving agent runs.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string
}
