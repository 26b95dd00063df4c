package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultFile = "parser-agent.yaml"

type Config struct {
	Backend       string `yaml:"backend"`
	Model         string `yaml:"model"`
	OllamaHost    string `yaml:"ollama_host"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	MaxAttempts int           `yaml:"max_attempts"`
	TestTimeout time.Duration `yaml:"test_timeout"`
	LLMTimeout  time.Duration `yaml:"llm_timeout"`
	Python      string        `yaml:"python"`

	DataDir    string `yaml:"data_dir"`
	ParsersDir string `yaml:"parsers_dir"`
	RunnerFile string `yaml:"runner_file"`

	Format  string `yaml:"format"`
	Confirm bool   `yaml:"confirm"`
	LogFile string `yaml:"log_file"`
	Debug   bool   `yaml:"debug"`
}

func Default() *Config {
	return &Config{
		Backend:     "gemini",
		OllamaHost:  "http://localhost:11434",
		MaxAttempts: 3,
		TestTimeout: 2 * time.Minute,
		LLMTimeout:  2 * time.Minute,
		Python:      "python3",
		DataDir:     "data",
		ParsersDir:  "custom_parsers",
		RunnerFile:  "test_runner.py",
		Format:      "text",
		LogFile:     "parser-agent.log",
	}
}

// Load reads path on top of the defaults, then applies environment overrides.
// A missing file is not an error when it is the default path.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultFile:
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("LLM_BACKEND")); v != "" {
		c.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_MODEL")); v != "" {
		c.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("OLLAMA_HOST")); v != "" {
		c.OllamaHost = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); v != "" {
		c.OpenAIBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PARSER_AGENT_PYTHON")); v != "" {
		c.Python = v
	}
	if v := strings.TrimSpace(os.Getenv("PARSER_AGENT_LOG")); v != "" {
		c.LogFile = v
	}
	if v := strings.TrimSpace(os.Getenv("PARSER_AGENT_ATTEMPTS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PARSER_AGENT_ATTEMPTS: %w", err)
		}
		c.MaxAttempts = n
	}
	if v := strings.TrimSpace(os.Getenv("PARSER_AGENT_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PARSER_AGENT_TIMEOUT: %w", err)
		}
		c.TestTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("PARSER_AGENT_LLM_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PARSER_AGENT_LLM_TIMEOUT: %w", err)
		}
		c.LLMTimeout = d
	}
	return nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "gemini", "ollama", "groq", "openai":
	default:
		return fmt.Errorf("unsupported LLM backend: %s", c.Backend)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.TestTimeout <= 0 {
		return fmt.Errorf("test_timeout must be positive, got %s", c.TestTimeout)
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("llm_timeout must be positive, got %s", c.LLMTimeout)
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown output format: %s", c.Format)
	}
	if strings.TrimSpace(c.Python) == "" {
		return errors.New("python interpreter must not be empty")
	}
	return nil
}
