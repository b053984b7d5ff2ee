package config

const (
	defaultStorageDriver = "sqlite"

	defaultProvider = "ollama"
	defaultModel    = "llama3.1"

	defaultMaxPlanDepth = 4
	defaultMaxAttempts  = 3
	defaultPython       = "python3"
	defaultShell        = "bash"

	defaultSummaryMaxRounds = 8

	defaultAPIListen = ":8081"

	defaultEventstreamDriver    = "none"
	defaultEventstreamTopic     = "treeagent.nodes"
	defaultEventstreamWorkers   = 3
	defaultEventstreamQueueSize = 256
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		LLM: LLMConfig{
			Provider: defaultProvider,
			Model:    defaultModel,
		},
		Agent: AgentConfig{
			MaxPlanDepth: defaultMaxPlanDepth,
			MaxAttempts:  defaultMaxAttempts,
			Python:       defaultPython,
			Shell:        defaultShell,
		},
		Summary: SummaryConfig{
			MaxRounds: defaultSummaryMaxRounds,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Eventstream: EventstreamConfig{
			Driver:    defaultEventstreamDriver,
			Topic:     defaultEventstreamTopic,
			Workers:   defaultEventstreamWorkers,
			QueueSize: defaultEventstreamQueueSize,
		},
	}
}
