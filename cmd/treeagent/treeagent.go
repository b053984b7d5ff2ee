// Package treeagentcmder
package treeagentcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/treeagent/cmd/treeagent/auth"
	configcmder "github.com/papercomputeco/treeagent/cmd/treeagent/config"
	initcmder "github.com/papercomputeco/treeagent/cmd/treeagent/init"
	memorycmder "github.com/papercomputeco/treeagent/cmd/treeagent/memory"
	runcmder "github.com/papercomputeco/treeagent/cmd/treeagent/run"
	servecmder "github.com/papercomputeco/treeagent/cmd/treeagent/serve"
	summarizecmder "github.com/papercomputeco/treeagent/cmd/treeagent/summarize"
	versioncmder "github.com/papercomputeco/treeagent/cmd/version"
)

const treeagentLongDesc string = `treeagent is an LLM agent that plans its work as a tree.

Every input becomes a node in a persistent memory tree. The agent streams a
model answer for each pending node, runs the code blocks it writes, expands
numbered plans into child nodes and stops to ask when it needs you.

Work with an agent using:
  treeagent run "<task>"       Add a task and work the tree
  treeagent run "<answer>"     Answer the question a run stopped on
  treeagent memory             Show the memory tree
  treeagent summarize "<text>" Fold text into the summary memory
  treeagent serve              Serve the HTTP API and MCP tools`

const treeagentShortDesc string = "treeagent - tree planning LLM agent"

func NewTreeagentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "treeagent",
		Short:         treeagentShortDesc,
		Long:          treeagentLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Workspace directory (default: ./.treeagent or ~/.treeagent)")

	// Add subcommands
	cmd.AddCommand(runcmder.NewRunCmd())
	cmd.AddCommand(summarizecmder.NewSummarizeCmd())
	cmd.AddCommand(memorycmder.NewMemoryCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
