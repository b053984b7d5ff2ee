// Package prompt renders the system prompts the agent and the summary memory
// send to the model.
package prompt

import (
	"embed"
	"fmt"
	"runtime"
	"strings"
	"text/template"

	"github.com/papercomputeco/treeagent/pkg/clock"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// AgentData fills the agent system prompt.
type AgentData struct {
	Now       string
	OS        string
	Workspace string

	// Tools is the caller-provided tool catalog, injected verbatim.
	Tools string

	// Memory is the visible part of the summary memory, if any.
	Memory string
}

// NewAgentData stamps the time from c and describes the host.
func NewAgentData(c clock.Clock, workspace, tools string) AgentData {
	return AgentData{
		Now:       clock.Format(c),
		OS:        OSDescriptor(),
		Workspace: workspace,
		Tools:     strings.TrimSpace(tools),
	}
}

// Agent renders the dispatch loop's system prompt.
func Agent(data AgentData) (string, error) {
	return render("agent.tmpl", data)
}

// SummaryData fills the summary memory system prompt.
type SummaryData struct {
	// Concepts are the titles already stored, ROOT excluded.
	Concepts []string
}

// Summary renders the segmentation prompt.
func Summary(data SummaryData) (string, error) {
	return render("summary.tmpl", data)
}

// OSDescriptor names the host platform.
func OSDescriptor() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS " + runtime.GOARCH
	case "windows":
		return "Windows " + runtime.GOARCH
	case "linux":
		return "Linux " + runtime.GOARCH
	default:
		return runtime.GOOS + " " + runtime.GOARCH
	}
}

func render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return sb.String(), nil
}
