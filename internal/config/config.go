package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            string        `yaml:"port"`
	DefaultProvider string        `yaml:"provider"`
	DefaultModel    string        `yaml:"model"`
	SystemPrompt    string        `yaml:"system_prompt"`
	OpenAIKey       string        `yaml:"-"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	OllamaHost      string        `yaml:"ollama_host"`
	GMUser          string        `yaml:"-"`
	GMPass          string        `yaml:"-"`
	SingleSession   bool          `yaml:"single_session"`
	ExportEnabled   bool          `yaml:"export_enabled"`
	ExportFile      string        `yaml:"export_file"`
	DecisionTimeout time.Duration `yaml:"decision_timeout"`
	ContextWindow   int           `yaml:"context_window"`
	Eliminators     int           `yaml:"eliminators"`
	Bystanders      int           `yaml:"bystanders"`
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.DefaultProvider = getenv("DEFAULT_PROVIDER", "random")
	c.DefaultModel = getenv("DEFAULT_MODEL", "gpt-4o-mini")
	c.SystemPrompt = os.Getenv("SYSTEM_PROMPT")
	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	c.OllamaHost = getenv("OLLAMA_HOST", "http://localhost:11434")
	c.GMUser = os.Getenv("GM_USER")
	c.GMPass = os.Getenv("GM_PASS")
	c.SingleSession = getenv("SINGLE_SESSION", "true") == "true"
	c.ExportEnabled = getenv("EXPORT_ENABLED", "true") == "true"
	c.ExportFile = getenv("EXPORT_FILE", "./gptwolf-games.txt")
	c.DecisionTimeout = time.Duration(getint("DECISION_TIMEOUT", 20)) * time.Second
	c.ContextWindow = getint("CONTEXT_WINDOW", 12)
	c.Eliminators = getint("ELIMINATORS", 2)
	c.Bystanders = getint("BYSTANDERS", 5)
	return c
}

// LoadFile overlays the YAML file at path onto c. Fields missing from the
// file keep their current values; secrets are only read from the environment.
func LoadFile(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
