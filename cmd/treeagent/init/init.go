// Package initcmder provides the init command for initializing a local
// .treeagent directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/treeagent/pkg/cliui"
	"github.com/papercomputeco/treeagent/pkg/config"
	"github.com/papercomputeco/treeagent/pkg/workspace"
)

// maxPresetSize caps the size of a config fetched from a URL.
const maxPresetSize = 1 << 20

type initCommander struct {
	preset string
	stdout io.Writer
	client *http.Client
}

const initLongDesc string = `Initialize a new .treeagent/ directory in the current working directory.

Creates a local .treeagent/ directory that takes precedence over the
default ~/.treeagent/ directory, and writes a config.toml into it. Each
project can keep its own memory tree, summary memory and configuration.

Use --preset to start from a provider preset (openai, anthropic, ollama,
gemini) or from a config.toml served at an http(s) URL. An existing
config.toml is only replaced when --preset is given.

Examples:
  treeagent init
  treeagent init --preset anthropic
  treeagent init --preset https://example.com/team/config.toml`

const initShortDesc string = "Initialize a local .treeagent/ directory"

func NewInitCmd() *cobra.Command {
	return newInitCmd(&initCommander{
		stdout: os.Stdout,
		client: &http.Client{Timeout: 30 * time.Second},
	})
}

func newInitCmd(cmder *initCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.Context(), configDir)
		},
		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Provider preset (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))
	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *initCommander) run(ctx context.Context, configDir string) error {
	manager := workspace.NewManager()

	var (
		dir string
		err error
	)
	if configDir != "" {
		dir, err = manager.Target(configDir)
	} else {
		dir, err = manager.InitLocal()
	}
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfger.GetTarget()); err == nil && c.preset == "" {
		fmt.Fprintf(c.stdout, "%s Already initialized: %s\n", cliui.SuccessMark, dir)
		return nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfg, err := c.resolvePreset(ctx)
	if err != nil {
		return err
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "%s Initialized %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(dir))
	fmt.Fprintf(c.stdout, "  %s %s\n", cliui.KeyStyle.Render("provider:"), cfg.LLM.Provider)
	fmt.Fprintf(c.stdout, "  %s %s\n", cliui.KeyStyle.Render("model:"), cfg.LLM.Model)
	return nil
}

func (c *initCommander) resolvePreset(ctx context.Context) (*config.Config, error) {
	switch {
	case c.preset == "":
		return config.NewDefaultConfig(), nil
	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		return c.fetchPreset(ctx, c.preset)
	default:
		return config.PresetConfig(c.preset)
	}
}

func (c *initCommander) fetchPreset(ctx context.Context, url string) (*config.Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating remote config request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPresetSize))
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
