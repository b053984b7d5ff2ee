// Package servecmder provides the serve command: the HTTP API and MCP tools
// over one workspace.
package servecmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/treeagent/api"
	"github.com/papercomputeco/treeagent/api/mcp"
	"github.com/papercomputeco/treeagent/pkg/config"
	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/logger"
	"github.com/papercomputeco/treeagent/pkg/session"
	"github.com/papercomputeco/treeagent/pkg/workspace"
)

type serveCommander struct {
	flags config.FlagSet
	debug bool

	listen        string
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
	maxRounds     uint
	eventDriver   string
	kafkaBrokers  string
	kafkaTopic    string

	// client replaces the configured provider when set.
	client llm.Client

	logger *zap.Logger
}

var serveFlags = []string{
	config.FlagAPIListen,
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
	config.FlagMaxRounds,
	config.FlagEventDriver,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const serveLongDesc string = `Serve the HTTP API and MCP tools of a workspace.

The API exposes the memory tree and summary memory for inspection and
drives the agent:
  GET  /memory               Text rendering of the tree
  GET  /memory/nodes         Every node
  GET  /memory/nodes/:id     One node
  GET  /memory/todo          The next pending node
  GET  /concepts             Every concept
  POST /run                  Run the agent with optional input
  POST /stop                 Stop the run in progress

MCP clients connect to /mcp on the same address.

serve holds the workspace lock until it exits.`

const serveShortDesc string = "Serve the HTTP API and MCP tools"

func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveCommander{flags: config.Flags})
}

func newServeCmd(cmder *serveCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cfg, err := config.ForCommand(cmd, cmder.flags, serveFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			dir, err := workspace.NewManager().Target(configDir)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cfg, dir)
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPIListen, &cmder.listen)
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
	config.AddUintFlag(cmd, cmder.flags, config.FlagMaxRounds, &cmder.maxRounds)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventDriver, &cmder.eventDriver)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cfg *config.Config, dir string) error {
	logFile, err := workspace.OpenLog(dir)
	if err != nil {
		return err
	}
	defer logFile.Close()

	c.logger = logger.NewLoggerWithWriters(c.debug, io.Writer(os.Stdout), logFile)
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

	mcpServer, err := mcp.NewServer(mcp.Config{
		Memory:   sess.Memory,
		Concepts: sess.Concepts,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server, err := api.NewServer(api.Config{ListenAddr: cfg.API.Listen}, api.Deps{
		Memory:   sess.Memory,
		Concepts: sess.Concepts,
		Runner:   sess.Agent,
		MCP:      mcpServer.Handler(),
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("serving workspace",
		zap.String("workspace", dir),
		zap.String("listen", cfg.API.Listen),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Run)
	g.Go(func() error {
		<-gctx.Done()
		c.logger.Info("shutting down")
		sess.Agent.Stop()
		return server.Shutdown()
	})

	return g.Wait()
}
