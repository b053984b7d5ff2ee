package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file", func() {
			data := `version = 0

[llm]
provider = "anthropic"
model = "claude-sonnet-4-5"

[agent]
max_attempts = 5
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.LLM.Provider).To(Equal("anthropic"))
			Expect(cfg.LLM.Model).To(Equal("claude-sonnet-4-5"))
			Expect(cfg.Agent.MaxAttempts).To(Equal(uint(5)))
		})

		It("fills missing fields from defaults", func() {
			data := `[eventstream]
driver = "kafka"
brokers = "localhost:9092"
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Eventstream.Driver).To(Equal("kafka"))
			Expect(cfg.Eventstream.Brokers).To(Equal("localhost:9092"))
			Expect(cfg.Eventstream.Topic).To(Equal(defaults.Eventstream.Topic))
			Expect(cfg.Eventstream.Workers).To(Equal(defaults.Eventstream.Workers))
			Expect(cfg.Storage.Driver).To(Equal(defaults.Storage.Driver))
			Expect(cfg.Agent.Python).To(Equal(defaults.Agent.Python))
			Expect(cfg.Summary.MaxRounds).To(Equal(defaults.Summary.MaxRounds))
		})

		It("returns an error for invalid TOML", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[llm\nprovider ="), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing config TOML"))
		})

		It("returns an error for an unsupported version", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("version = 9\n"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 9")))
		})
	})

	Describe("SaveConfig", func() {
		It("writes a config file that loads back", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.LLM.Model = "qwen2.5"
			cfg.LLM.Cache = true
			Expect(c.SaveConfig(cfg)).To(Succeed())

			Expect(filepath.Join(tmpDir, "config.toml")).To(BeAnExistingFile())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("rejects a nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("SetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets string keys", func() {
			Expect(c.SetConfigValue("llm.provider", "openai")).To(Succeed())
			Expect(c.SetConfigValue("storage.postgres_dsn", "postgres://localhost/treeagent")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.LLM.Provider).To(Equal("openai"))
			Expect(cfg.Storage.PostgresDSN).To(Equal("postgres://localhost/treeagent"))
		})

		It("sets uint keys", func() {
			Expect(c.SetConfigValue("agent.max_plan_depth", "2")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Agent.MaxPlanDepth).To(Equal(uint(2)))
		})

		It("sets bool keys", func() {
			Expect(c.SetConfigValue("llm.cache", "true")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.LLM.Cache).To(BeTrue())
		})

		It("rejects malformed numbers", func() {
			err := c.SetConfigValue("summary.max_rounds", "many")
			Expect(err).To(MatchError(ContainSubstring("invalid value for summary.max_rounds")))
		})

		It("rejects malformed booleans", func() {
			err := c.SetConfigValue("llm.cache", "sometimes")
			Expect(err).To(MatchError(ContainSubstring("invalid value for llm.cache")))
		})

		It("rejects unknown keys", func() {
			err := c.SetConfigValue("proxy.upstream", "x")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})
	})

	Describe("GetConfigValue", func() {
		It("returns defaults for unset keys", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("eventstream.topic")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("treeagent.nodes"))

			val, err = c.GetConfigValue("llm.cache")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("false"))
		})

		It("returns set values", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SetConfigValue("eventstream.queue_size", "64")).To(Succeed())

			val, err := c.GetConfigValue("eventstream.queue_size")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("64"))
		})

		It("rejects unknown keys", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.GetConfigValue("nope")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("ValidConfigKeys", func() {
	It("lists every key in section order", func() {
		keys := config.ValidConfigKeys()
		Expect(keys).To(HaveLen(20))
		Expect(keys[0]).To(Equal("storage.driver"))
		Expect(keys[len(keys)-1]).To(Equal("eventstream.queue_size"))
		for _, k := range keys {
			Expect(config.IsValidConfigKey(k)).To(BeTrue())
		}
	})

	It("rejects unknown keys", func() {
		Expect(config.IsValidConfigKey("vector_store.provider")).To(BeFalse())
	})
})

var _ = Describe("PresetConfig", func() {
	DescribeTable("returns provider settings",
		func(name, provider, model string) {
			cfg, err := config.PresetConfig(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.LLM.Provider).To(Equal(provider))
			Expect(cfg.LLM.Model).To(Equal(model))
			Expect(cfg.Agent).To(Equal(config.NewDefaultConfig().Agent))
		},
		Entry("openai", "openai", "openai", "gpt-4o"),
		Entry("anthropic", "Anthropic", "anthropic", "claude-sonnet-4-5"),
		Entry("ollama", "ollama", "ollama", "llama3.1"),
		Entry("gemini", "gemini", "gemini", "gemini-2.5-flash"),
	)

	It("rejects unknown presets", func() {
		_, err := config.PresetConfig("bedrock")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
	})

	It("names every preset", func() {
		Expect(config.ValidPresetNames()).To(ConsistOf("openai", "anthropic", "ollama", "gemini"))
	})
})

var _ = Describe("ParseConfigTOML", func() {
	It("parses every section", func() {
		data := []byte(`
[storage]
driver = "postgres"
postgres_dsn = "postgres://db/treeagent"

[api]
listen = ":9000"

[summary]
max_rounds = 3
`)
		cfg, err := config.ParseConfigTOML(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Storage.Driver).To(Equal("postgres"))
		Expect(cfg.Storage.PostgresDSN).To(Equal("postgres://db/treeagent"))
		Expect(cfg.API.Listen).To(Equal(":9000"))
		Expect(cfg.Summary.MaxRounds).To(Equal(uint(3)))
	})
})
