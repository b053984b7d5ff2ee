// Package session opens every component of a workspace from a resolved
// config: storage, memory tree, concept store, model client, event
// publisher, agent and summarizer.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/agent"
	"github.com/papercomputeco/treeagent/pkg/clock"
	"github.com/papercomputeco/treeagent/pkg/config"
	"github.com/papercomputeco/treeagent/pkg/credentials"
	"github.com/papercomputeco/treeagent/pkg/eventstream"
	"github.com/papercomputeco/treeagent/pkg/eventstream/kafka"
	"github.com/papercomputeco/treeagent/pkg/eventstream/pool"
	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/llm/cache"
	"github.com/papercomputeco/treeagent/pkg/llm/provider"
	"github.com/papercomputeco/treeagent/pkg/memory"
	"github.com/papercomputeco/treeagent/pkg/storage"
	storageutils "github.com/papercomputeco/treeagent/pkg/storage/utils"
	"github.com/papercomputeco/treeagent/pkg/summary"
	"github.com/papercomputeco/treeagent/pkg/workspace"
)

// Options configures Open.
type Options struct {
	// Config is the resolved treeagent configuration.
	Config *config.Config

	// Workspace is the resolved workspace directory.
	Workspace string

	// Client replaces the configured provider. The response cache still
	// wraps it when cache mode is on.
	Client llm.Client

	// ReadOnly skips the workspace lock, the model client, the agent and the
	// summarizer. Used by inspection commands.
	ReadOnly bool

	Logger *zap.Logger
}

// Session is an opened workspace.
type Session struct {
	Workspace string

	Driver     storage.Driver
	Memory     *memory.Memory
	Concepts   *summary.Store
	Client     llm.Client
	Agent      *agent.Agent
	Summarizer *summary.Summarizer

	publisher eventstream.Publisher
	lock      *workspace.Lock
	logger    *zap.Logger
}

// Open opens the workspace described by o. On error everything already
// opened is closed again.
func Open(ctx context.Context, o Options) (s *Session, err error) {
	if o.Config == nil {
		return nil, errors.New("session requires a config")
	}
	if o.Workspace == "" {
		return nil, errors.New("session requires a workspace")
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	cfg := o.Config

	s = &Session{
		Workspace: o.Workspace,
		logger:    o.Logger,
	}
	defer func() {
		if err != nil {
			_ = s.Close()
			s = nil
		}
	}()

	if !o.ReadOnly {
		s.lock, err = workspace.NewManager().TryLock(o.Workspace)
		if err != nil {
			return s, err
		}
	}

	s.Driver, err = storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		ProviderType: cfg.Storage.Driver,
		Workspace:    o.Workspace,
		SQLitePath:   cfg.Storage.SQLitePath,
		PostgresDSN:  cfg.Storage.PostgresDSN,
		Logger:       o.Logger,
	})
	if err != nil {
		return s, err
	}

	clk := clock.New(cfg.LLM.Cache)

	s.Memory, err = memory.Open(ctx, s.Driver,
		memory.WithLogger(o.Logger),
		memory.WithClock(clk),
	)
	if err != nil {
		return s, fmt.Errorf("opening memory: %w", err)
	}

	s.Concepts, err = summary.OpenStore(ctx, s.Driver, o.Logger)
	if err != nil {
		return s, fmt.Errorf("opening concepts: %w", err)
	}

	if o.ReadOnly {
		return s, nil
	}

	s.Client, err = s.newClient(ctx, o)
	if err != nil {
		return s, err
	}

	s.publisher, err = newPublisher(cfg.Eventstream, o.Logger)
	if err != nil {
		return s, err
	}

	tools, err := readTools(cfg.Agent.ToolsFile)
	if err != nil {
		return s, err
	}

	agentConfig := agent.Config{
		Workspace:    o.Workspace,
		Client:       s.Client,
		Memory:       s.Memory,
		Tools:        tools,
		Concepts:     s.Concepts,
		Clock:        clk,
		MaxPlanDepth: int(cfg.Agent.MaxPlanDepth),
		MaxAttempts:  int(cfg.Agent.MaxAttempts),
		Python:       cfg.Agent.Python,
		Shell:        cfg.Agent.Shell,
		Publisher:    s.publisher,
		Logger:       o.Logger,
	}

	s.Agent, err = agent.New(agentConfig)
	if err != nil {
		return s, err
	}

	s.Summarizer = summary.New(s.Concepts, s.Client,
		summary.WithLogger(o.Logger),
		summary.WithMaxRounds(int(cfg.Summary.MaxRounds)),
	)

	return s, nil
}

// Close flushes queued events and releases storage and the workspace lock.
func (s *Session) Close() error {
	var errs []error
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.Driver != nil {
		errs = append(errs, s.Driver.Close())
	}
	errs = append(errs, s.lock.Release())
	return errors.Join(errs...)
}

func (s *Session) newClient(ctx context.Context, o Options) (llm.Client, error) {
	cfg := o.Config
	client := o.Client

	if client == nil {
		creds, err := credentials.NewManager(o.Workspace)
		if err != nil {
			return nil, err
		}
		apiKey, err := creds.ResolveKey(cfg.LLM.Provider, cfg.LLM.APIKey)
		if err != nil {
			return nil, err
		}

		client, err = provider.New(ctx, provider.Config{
			Provider: cfg.LLM.Provider,
			Target:   cfg.LLM.Target,
			Model:    cfg.LLM.Model,
			APIKey:   apiKey,
		})
		if err != nil {
			return nil, fmt.Errorf("creating llm client: %w", err)
		}
		s.logger.Debug("using llm provider",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model),
		)
	}

	if cfg.LLM.Cache {
		s.logger.Debug("response cache enabled")
		client = cache.New(client, s.Driver, s.logger)
	}

	return client, nil
}

func newPublisher(c config.EventstreamConfig, logger *zap.Logger) (eventstream.Publisher, error) {
	switch c.Driver {
	case "", "none":
		return nil, nil

	case "kafka":
		var brokers []string
		for _, b := range strings.Split(c.Brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}

		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   c.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}

		p, err := pool.NewPool(&pool.Config{
			Publisher:  publisher,
			NumWorkers: c.Workers,
			QueueSize:  c.QueueSize,
			Logger:     logger,
		})
		if err != nil {
			_ = publisher.Close()
			return nil, err
		}
		logger.Debug("publishing node events to kafka",
			zap.Strings("brokers", brokers),
			zap.String("topic", c.Topic),
		)
		return p, nil

	default:
		return nil, fmt.Errorf("unsupported eventstream driver: %s", c.Driver)
	}
}

func readTools(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading tools file: %w", err)
	}
	return string(data), nil
}
