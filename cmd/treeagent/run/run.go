// Package runcmder provides the run command: add input to the memory tree
// and let the agent work through the pending nodes.
package runcmder

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

	"github.com/papercomputeco/treeagent/pkg/agent"
	"github.com/papercomputeco/treeagent/pkg/cliui"
	"github.com/papercomputeco/treeagent/pkg/config"
	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/logger"
	"github.com/papercomputeco/treeagent/pkg/session"
	"github.com/papercomputeco/treeagent/pkg/workspace"
)

type runCommander struct {
	flags   config.FlagSet
	debug   bool
	forNode int64

	storageDriver string
	sqlitePath    string
	postgresDSN   string
	provider      string
	target        string
	model         string
	cache         bool
	maxPlanDepth  uint
	maxAttempts   uint
	toolsFile     string
	eventDriver   string
	kafkaBrokers  string
	kafkaTopic    string

	// client replaces the configured provider when set.
	client llm.Client

	stdin  io.Reader
	stdout io.Writer
	logger *zap.Logger
}

var runFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagProvider,
	config.FlagTarget,
	config.FlagModel,
	config.FlagCache,
	config.FlagMaxPlanDepth,
	config.FlagMaxAttempts,
	config.FlagToolsFile,
	config.FlagEventDriver,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const runLongDesc string = `Add input to the memory tree and run the agent.

The arguments are joined into one input. Use "-" to read the input from
stdin. Without input the agent resumes the pending nodes of the tree.

When a previous run stopped on a question, the next input answers it.
Use --for-node to attach the input after a specific node instead.

The model's answers stream to stdout. Logs go to treeagent.log in the
workspace, and to stderr with --debug.

Examples:
  treeagent run "Count the lines of every Go file in this repo"
  treeagent run "yes, use the sqlite database"
  treeagent run --for-node 12 "try a shell script instead"
  echo "summarize README.md" | treeagent run -
  treeagent run`

const runShortDesc string = "Add input and run the agent"

func NewRunCmd() *cobra.Command {
	return newRunCmd(&runCommander{
		flags:  config.Flags,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	})
}

func newRunCmd(cmder *runCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [input...]",
		Short: runShortDesc,
		Long:  runLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cfg, err := config.ForCommand(cmd, cmder.flags, runFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			dir, err := workspace.NewManager().Target(configDir)
			if err != nil {
				return err
			}

			input, err := cmder.readInput(args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cfg, dir, input)
		},
	}

	cmd.Flags().Int64Var(&cmder.forNode, "for-node", 0, "Insert the input after this node")

	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, cmder.flags, config.FlagModel, &cmder.model)
	config.AddBoolFlag(cmd, cmder.flags, config.FlagCache, &cmder.cache)
	config.AddUintFlag(cmd, cmder.flags, config.FlagMaxPlanDepth, &cmder.maxPlanDepth)
	config.AddUintFlag(cmd, cmder.flags, config.FlagMaxAttempts, &cmder.maxAttempts)
	config.AddStringFlag(cmd, cmder.flags, config.FlagToolsFile, &cmder.toolsFile)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventDriver, &cmder.eventDriver)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	return cmd
}

// readInput joins args into one input. A single "-" reads stdin. Returns
// nil when there is no input.
func (c *runCommander) readInput(args []string) (*string, error) {
	if len(args) == 0 {
		return nil, nil
	}

	var text string
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	} else {
		text = strings.Join(args, " ")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("input is empty")
	}
	return &text, nil
}

func (c *runCommander) run(ctx context.Context, cfg *config.Config, dir string, input *string) error {
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

	manager := workspace.NewManager()
	question, err := manager.LoadQuestion(dir)
	if err != nil {
		return err
	}

	opts := []agent.RunOption{agent.WithOutput(cliui.Sink(c.stdout))}
	forNode := c.forNode
	if input != nil {
		if forNode == 0 && question != nil {
			forNode = question.NodeID
			c.logger.Info("answering pending question", zap.Int64("node_id", forNode))
		}
		opts = append(opts, agent.WithInput(*input))
		if forNode != 0 {
			opts = append(opts, agent.WithForNode(forNode))
		}
	}

	result, err := sess.Agent.Run(ctx, opts...)
	if err != nil {
		return err
	}

	switch {
	case result.Stopped:
		node, err := sess.Memory.GetNode(result.NodeID)
		if err != nil {
			return err
		}
		if err := manager.SaveQuestion(dir, &workspace.Question{NodeID: node.ID, Content: node.Content}); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "\n  %s %s\n\n",
			cliui.WarnStyle.Render("?"),
			cliui.DimStyle.Render(fmt.Sprintf("waiting for input on node %d", node.ID)),
		)

	case result.Exhausted:
		fmt.Fprintf(c.stdout, "\n  %s %s\n\n",
			cliui.FailMark,
			fmt.Sprintf("node %d failed %d times, giving up", result.NodeID, cfg.Agent.MaxAttempts),
		)

	case result.Cancelled:
		fmt.Fprintf(c.stdout, "\n  %s\n\n", cliui.DimStyle.Render("cancelled"))

	default:
		fmt.Fprintf(c.stdout, "\n  %s %s\n\n", cliui.SuccessMark, "done")
	}

	if !result.Stopped && question != nil && (input != nil || !result.Cancelled) {
		return manager.ClearQuestion(dir)
	}
	return nil
}
