package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent treeagent configuration stored as
// config.toml in the workspace directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	LLM         LLMConfig         `toml:"llm"`
	Agent       AgentConfig       `toml:"agent"`
	Summary     SummaryConfig     `toml:"summary"`
	API         APIConfig         `toml:"api"`
	Eventstream EventstreamConfig `toml:"eventstream"`
}

// StorageConfig selects where the memory tree, concepts and response cache live.
type StorageConfig struct {
	// Driver is one of "sqlite", "postgres" or "memory".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// LLMConfig holds model provider settings.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`

	// Cache freezes the prompt clock and replays stored responses.
	Cache bool `toml:"cache,omitempty"`
}

// AgentConfig holds dispatch loop settings.
type AgentConfig struct {
	MaxPlanDepth uint   `toml:"max_plan_depth,omitempty"`
	MaxAttempts  uint   `toml:"max_attempts,omitempty"`
	Python       string `toml:"python,omitempty"`
	Shell        string `toml:"shell,omitempty"`

	// ToolsFile is a text file whose content is offered to the model as the
	// tool catalog.
	ToolsFile string `toml:"tools_file,omitempty"`
}

// SummaryConfig holds summary memory settings.
type SummaryConfig struct {
	MaxRounds uint `toml:"max_rounds,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventstreamConfig holds node event publishing settings.
type EventstreamConfig struct {
	// Driver is "none" or "kafka".
	Driver string `toml:"driver,omitempty"`

	// Brokers is a comma separated list of host:port addresses.
	Brokers   string `toml:"brokers,omitempty"`
	Topic     string `toml:"topic,omitempty"`
	Workers   uint   `toml:"workers,omitempty"`
	QueueSize uint   `toml:"queue_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver":       stringKey(func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"llm.provider": stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.target":   stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.model":    stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.api_key":  stringKey(func(c *Config) *string { return &c.LLM.APIKey }),
	"llm.cache":    boolKey("llm.cache", func(c *Config) *bool { return &c.LLM.Cache }),

	"agent.max_plan_depth": uintKey("agent.max_plan_depth", func(c *Config) *uint { return &c.Agent.MaxPlanDepth }),
	"agent.max_attempts":   uintKey("agent.max_attempts", func(c *Config) *uint { return &c.Agent.MaxAttempts }),
	"agent.python":         stringKey(func(c *Config) *string { return &c.Agent.Python }),
	"agent.shell":          stringKey(func(c *Config) *string { return &c.Agent.Shell }),
	"agent.tools_file":     stringKey(func(c *Config) *string { return &c.Agent.ToolsFile }),

	"summary.max_rounds": uintKey("summary.max_rounds", func(c *Config) *uint { return &c.Summary.MaxRounds }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"eventstream.driver":     stringKey(func(c *Config) *string { return &c.Eventstream.Driver }),
	"eventstream.brokers":    stringKey(func(c *Config) *string { return &c.Eventstream.Brokers }),
	"eventstream.topic":      stringKey(func(c *Config) *string { return &c.Eventstream.Topic }),
	"eventstream.workers":    uintKey("eventstream.workers", func(c *Config) *uint { return &c.Eventstream.Workers }),
	"eventstream.queue_size": uintKey("eventstream.queue_size", func(c *Config) *uint { return &c.Eventstream.QueueSize }),
}

// orderedKeys lists the keys in TOML section order.
var orderedKeys = []string{
	"storage.driver",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"llm.provider",
	"llm.target",
	"llm.model",
	"llm.api_key",
	"llm.cache",
	"agent.max_plan_depth",
	"agent.max_attempts",
	"agent.python",
	"agent.shell",
	"agent.tools_file",
	"summary.max_rounds",
	"api.listen",
	"eventstream.driver",
	"eventstream.brokers",
	"eventstream.topic",
	"eventstream.workers",
	"eventstream.queue_size",
}
