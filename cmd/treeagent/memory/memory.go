// Package memorycmder provides the memory command for inspecting the memory
// tree and summary memory of a workspace.
package memorycmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/treeagent/pkg/cliui"
	"github.com/papercomputeco/treeagent/pkg/config"
	"github.com/papercomputeco/treeagent/pkg/logger"
	"github.com/papercomputeco/treeagent/pkg/memory"
	"github.com/papercomputeco/treeagent/pkg/session"
	"github.com/papercomputeco/treeagent/pkg/summary"
	"github.com/papercomputeco/treeagent/pkg/workspace"
)

type memoryCommander struct {
	flags    config.FlagSet
	debug    bool
	nodeID   int64
	concepts bool

	storageDriver string
	sqlitePath    string
	postgresDSN   string

	stdout io.Writer
}

var memoryFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgres,
}

const memoryLongDesc string = `Show the memory tree of a workspace.

Each line is one node: [x] marks finished nodes, the number is the node id
and "<" marks the current node. Use --node to print one node in full and
--concepts to print the summary memory instead.

The memory command does not take the workspace lock, so it can inspect a
workspace while "treeagent serve" is running.

Examples:
  treeagent memory
  treeagent memory --node 12
  treeagent memory --concepts`

const memoryShortDesc string = "Show the memory tree"

func NewMemoryCmd() *cobra.Command {
	return newMemoryCmd(&memoryCommander{
		flags:  config.Flags,
		stdout: os.Stdout,
	})
}

func newMemoryCmd(cmder *memoryCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: memoryShortDesc,
		Long:  memoryLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cfg, err := config.ForCommand(cmd, cmder.flags, memoryFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			dir, err := workspace.NewManager().Target(configDir)
			if err != nil {
				return err
			}

			return cmder.run(cmd.Context(), cfg, dir)
		},
	}

	cmd.Flags().Int64Var(&cmder.nodeID, "node", 0, "Print the node with this id in full")
	cmd.Flags().BoolVar(&cmder.concepts, "concepts", false, "Print the summary memory")

	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgres, &cmder.postgresDSN)

	return cmd
}

func (c *memoryCommander) run(ctx context.Context, cfg *config.Config, dir string) error {
	log := logger.Nop()
	if c.debug {
		log = logger.NewLoggerWithWriters(true, os.Stderr)
	}

	sess, err := session.Open(ctx, session.Options{
		Config:    cfg,
		Workspace: dir,
		ReadOnly:  true,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	switch {
	case c.concepts:
		return c.printConcepts(sess.Concepts)
	case c.nodeID != 0:
		return c.printNode(sess.Memory)
	default:
		return c.printTree(sess.Memory)
	}
}

func (c *memoryCommander) printTree(mem *memory.Memory) error {
	if mem.Len() <= 1 {
		_, err := fmt.Fprintf(c.stdout, "%s\n", cliui.DimStyle.Render("memory is empty"))
		return err
	}
	_, err := io.WriteString(c.stdout, mem.String())
	return err
}

func (c *memoryCommander) printNode(mem *memory.Memory) error {
	n, err := mem.GetNode(c.nodeID)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "%s %s\n", cliui.KeyStyle.Render("id:"), cliui.ValueStyle.Render(fmt.Sprint(n.ID)))
	fmt.Fprintf(c.stdout, "%s %s\n", cliui.KeyStyle.Render("parent:"), cliui.ValueStyle.Render(fmt.Sprint(n.ParentID)))
	fmt.Fprintf(c.stdout, "%s %s\n", cliui.KeyStyle.Render("role:"), cliui.ValueStyle.Render(string(n.Role)))
	fmt.Fprintf(c.stdout, "%s %s\n", cliui.KeyStyle.Render("action:"), cliui.ValueStyle.Render(string(n.Action)))
	fmt.Fprintf(c.stdout, "%s %s\n", cliui.KeyStyle.Render("status:"), cliui.ValueStyle.Render(string(n.Status)))
	fmt.Fprintf(c.stdout, "%s %s\n\n", cliui.KeyStyle.Render("depth:"), cliui.ValueStyle.Render(fmt.Sprint(n.Depth)))

	return cliui.PrintMarkdown(c.stdout, strings.TrimRight(n.Content, "\n")+"\n")
}

func (c *memoryCommander) printConcepts(store *summary.Store) error {
	concepts := store.Concepts()
	if len(concepts) == 0 {
		_, err := fmt.Fprintf(c.stdout, "%s\n", cliui.DimStyle.Render("summary memory is empty"))
		return err
	}

	for _, concept := range concepts {
		state := cliui.DimStyle.Render("hidden")
		if concept.Show {
			state = cliui.ValueStyle.Render("shown")
		}
		fmt.Fprintf(c.stdout, "%s %s\n", cliui.NameStyle.Render(concept.Key), state)

		content := strings.TrimSpace(concept.Content)
		if content == "" {
			continue
		}
		for _, line := range strings.Split(content, "\n") {
			fmt.Fprintf(c.stdout, "  %s\n", line)
		}
	}
	return nil
}
