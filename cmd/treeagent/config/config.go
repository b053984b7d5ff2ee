// Package configcmder provides the config command for managing persistent
// treeagent configuration stored in the .treeagent/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/treeagent/pkg/cliui"
	"github.com/papercomputeco/treeagent/pkg/config"
)

const configLongDesc string = `Manage persistent treeagent configuration.

Configuration is stored as config.toml in the .treeagent/ directory and
provides default values for command flags. Precedence is:
  flag > TREEAGENT_* environment variable > config.toml > built-in default

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  llm.provider, llm.target, llm.model, llm.api_key, llm.cache,
  agent.max_plan_depth, agent.max_attempts, agent.python, agent.shell,
  agent.tools_file, summary.max_rounds, api.listen,
  eventstream.driver, eventstream.brokers, eventstream.topic,
  eventstream.workers, eventstream.queue_size

Use subcommands to get, set, or list configuration values:
  treeagent config set <key> <value>    Set a configuration value
  treeagent config get <key>            Get a configuration value
  treeagent config list                 List all configuration values

Examples:
  treeagent config set llm.provider anthropic
  treeagent config set agent.max_attempts 5
  treeagent config get llm.model
  treeagent config list`

const configShortDesc string = "Manage persistent treeagent configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
