// Package summarizecmder provides the summarize command: fold text into the
// summary memory of a workspace.
package summarizecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/cliui"
	"github.com/papercomputeco/treeagent/pkg/config"
	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/logger"
	"github.com/papercomputeco/treeagent/pkg/output"
	"github.com/papercomputeco/treeagent/pkg/session"
	"github.com/papercomputeco/treeagent/pkg/workspace"
)

type summarizeCommander struct {
	flags config.FlagSet
	debug bool
	role  string
	quiet bool

	storageDriver string
	sqlitePath    string
	postgresDSN   string
	provider      string
	target        string
	model         string
	cache         bool
	maxRounds     uint

	// client replaces the configured provider when set.
	client llm.Client

	stdin  io.Reader
	stdout io.Writer
	logger *zap.Logger
}

var summarizeFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagProvider,
	config.FlagTarget,
	config.FlagModel,
	config.FlagCache,
	config.FlagMaxRounds,
}

const summarizeLongDesc string = `Fold text into the summary memory.

The model sorts the text into titled concepts. Concepts start hidden and
are revealed when the model asks for them. Text it could not sort stays in
the root notes and is offered again next time.

The arguments are joined into one text. Without arguments, or with "-",
the text is read from stdin. The visible memory is printed afterwards.

Examples:
  treeagent summarize "The deploy target moved to eu-west-1"
  cat meeting-notes.md | treeagent summarize
  treeagent summarize --role system "Prefer terse answers"`

const summarizeShortDesc string = "Fold text into the summary memory"

func NewSummarizeCmd() *cobra.Command {
	return newSummarizeCmd(&summarizeCommander{
		flags:  config.Flags,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	})
}

func newSummarizeCmd(cmder *summarizeCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize [text...]",
		Short: summarizeShortDesc,
		Long:  summarizeLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cfg, err := config.ForCommand(cmd, cmder.flags, summarizeFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			dir, err := workspace.NewManager().Target(configDir)
			if err != nil {
				return err
			}

			text, err := cmder.readText(args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cfg, dir, text)
		},
	}

	cmd.Flags().StringVar(&cmder.role, "role", llm.RoleUser, "Role of the text: user or system")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Do not stream the model output")

	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, cmder.flags, config.FlagModel, &cmder.model)
	config.AddBoolFlag(cmd, cmder.flags, config.FlagCache, &cmder.cache)
	config.AddUintFlag(cmd, cmder.flags, config.FlagMaxRounds, &cmder.maxRounds)

	return cmd
}

func (c *summarizeCommander) readText(args []string) (string, error) {
	var text string
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	} else {
		text = strings.Join(args, " ")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("nothing to summarize")
	}
	return text, nil
}

func (c *summarizeCommander) run(ctx context.Context, cfg *config.Config, dir, text string) error {
	logFile, err := workspace.OpenLog(dir)
	if err != nil {
		return err
	}
	defer logFile.Close()

	writers := []io.Writer{logFile}
	if c.debug {
		writers = append(writers, os.Stderr)
	}
	c.logger = logger.NewLoggerWithWriters(c.debug, writers...)
	defer func() { _ = c.logger.Sync() }()

	sess, err := session.Open(ctx, session.Options{
		Config:    cfg,
		Workspace: dir,
		Client:    c.client,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	sink := output.Discard
	if !c.quiet {
		sink = cliui.Sink(c.stdout)
	}

	result, err := sess.Summarizer.AddContent(ctx, text, c.role, sink)
	if err != nil {
		return err
	}

	if !c.quiet {
		fmt.Fprintf(c.stdout, "\n%s\n\n", cliui.HeaderStyle.Render("Memory"))
	}
	return cliui.PrintMarkdown(c.stdout, strings.TrimSpace(result)+"\n")
}
