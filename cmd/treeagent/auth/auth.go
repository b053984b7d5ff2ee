// Package authcmder provides the auth command for storing LLM provider API
// keys in a workspace.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/treeagent/pkg/cliui"
	"github.com/papercomputeco/treeagent/pkg/credentials"
)

type authCommander struct {
	list   bool
	remove string

	stdin  *os.File
	stdout io.Writer
}

const authLongDesc string = `Store API keys for LLM providers.

Keys are stored in credentials.toml in the .treeagent/ directory. A key is
resolved in this order when a command talks to a provider:
  llm.api_key config value > provider environment variable > stored key

Supported providers: anthropic, gemini, openai

Examples:
  treeagent auth anthropic              Prompt for an Anthropic API key
  treeagent auth --list                 List stored keys
  treeagent auth --remove openai        Remove the stored OpenAI key
  echo $KEY | treeagent auth gemini     Pipe the key from stdin`

const authShortDesc string = "Store API keys for LLM providers"

func NewAuthCmd() *cobra.Command {
	return newAuthCmd(&authCommander{
		stdin:  os.Stdin,
		stdout: os.Stdout,
	})
}

func newAuthCmd(cmder *authCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			mgr, err := credentials.NewManager(configDir)
			if err != nil {
				return fmt.Errorf("loading credentials: %w", err)
			}

			switch {
			case cmder.list:
				return cmder.runList(mgr)
			case cmder.remove != "":
				return cmder.runRemove(mgr, cmder.remove)
			case len(args) == 0:
				return fmt.Errorf("provider argument required\n\nSupported providers: %s",
					strings.Join(credentials.SupportedProviders(), ", "))
			default:
				return cmder.runAuth(mgr, args[0])
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&cmder.list, "list", false, "List stored keys")
	cmd.Flags().StringVar(&cmder.remove, "remove", "", "Remove the stored key of a provider")

	return cmd
}

func (c *authCommander) runAuth(mgr *credentials.Manager, provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	apiKey, err := c.readAPIKey(provider)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	if err := mgr.SetKey(provider, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "\n  %s Stored %s key %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render("(used when "+credentials.EnvVarForProvider(provider)+" is unset)"),
	)
	return nil
}

func (c *authCommander) runList(mgr *credentials.Manager) error {
	providers, err := mgr.ListProviders()
	if err != nil {
		return err
	}

	if len(providers) == 0 {
		fmt.Fprintf(c.stdout, "\n  %s No stored keys.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(c.stdout, "  Use 'treeagent auth <provider>' to store one.\n")
		fmt.Fprintf(c.stdout, "  Supported providers: %s\n\n", strings.Join(credentials.SupportedProviders(), ", "))
		return nil
	}

	fmt.Fprintf(c.stdout, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored keys"))
	for _, p := range providers {
		line := fmt.Sprintf("  %s  %s", cliui.SuccessMark, cliui.NameStyle.Render(p))
		if envVar := credentials.EnvVarForProvider(p); envVar != "" {
			line += "  " + cliui.DimStyle.Render("overridden by "+envVar)
			if os.Getenv(envVar) != "" {
				line += " " + cliui.WarnStyle.Render("(set)")
			}
		}
		fmt.Fprintln(c.stdout, line)
	}
	fmt.Fprintln(c.stdout)

	return nil
}

func (c *authCommander) runRemove(mgr *credentials.Manager, provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "\n  %s Removed %s key.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))
	return nil
}

// readAPIKey reads the first line of stdin when it is not a terminal, and
// prompts with hidden input otherwise.
func (c *authCommander) readAPIKey(provider string) (string, error) {
	if !term.IsTerminal(int(c.stdin.Fd())) {
		scanner := bufio.NewScanner(c.stdin)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	fmt.Fprintf(c.stdout, "Enter API key for %s (%s): ", provider, credentials.EnvVarForProvider(provider))

	keyBytes, err := term.ReadPassword(int(c.stdin.Fd()))
	fmt.Fprintln(c.stdout)
	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}

	return string(keyBytes), nil
}
