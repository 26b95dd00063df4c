package llm_client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parser-agent/internal/logger"
)

var (
	ErrNotInitialized = errors.New("llm client is not initialized")
	ErrEmptyResponse  = errors.New("llm returned an empty response")
)

type Config struct {
	Backend    string
	Model      string
	OllamaHost string
	// BaseURL overrides the endpoint of the OpenAI-compatible backends.
	BaseURL string
	// Timeout bounds a single completion call; zero means no extra bound.
	Timeout time.Duration
}

type Provider interface {
	Init(ctx context.Context, cfg Config) error
	DefaultModel() string
	AllowedModelOrDefault(model string) string
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// Client is the process-wide handle to the language model. It is built once
// by the CLI and handed to the planner and the generator.
type Client struct {
	provider Provider
	backend  string
	model    string
	timeout  time.Duration
}

func newProvider(backend string) (Provider, error) {
	switch backend {
	case "ollama":
		return &ollamaProvider{}, nil
	case "gemini":
		return &geminiProvider{}, nil
	case "groq":
		return &openAIProvider{flavor: flavorGroq}, nil
	case "openai":
		return &openAIProvider{flavor: flavorOpenAI}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM backend: %s", backend)
	}
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "gemini"
	}
	p, err := newProvider(backend)
	if err != nil {
		return nil, err
	}
	if err := p.Init(ctx, cfg); err != nil {
		return nil, err
	}
	return &Client{
		provider: p,
		backend:  backend,
		model:    p.AllowedModelOrDefault(cfg.Model),
		timeout:  cfg.Timeout,
	}, nil
}

// NewWithProvider wraps an already initialised provider.
func NewWithProvider(backend string, p Provider, timeout time.Duration) *Client {
	return &Client{provider: p, backend: backend, model: p.AllowedModelOrDefault(""), timeout: timeout}
}

func (c *Client) Backend() string {
	if c == nil {
		return ""
	}
	return c.backend
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// DefaultModel is the backend's model when none is configured.
func (c *Client) DefaultModel() string {
	if c == nil || c.provider == nil {
		return ""
	}
	return c.provider.DefaultModel()
}

// Complete sends one single-turn prompt and returns the raw text response.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.provider == nil {
		return "", ErrNotInitialized
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.provider.Generate(ctx, prompt, c.model)
	if err != nil {
		logger.Log.Errorw("llm call failed", "backend", c.backend, "model", c.model, "error", err)
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%s: %w", c.backend, ErrEmptyResponse)
	}
	logger.Log.Debugw("llm call",
		"backend", c.backend,
		"model", c.model,
		"prompt_chars", len(prompt),
		"response_chars", len(out),
		"duration_ms", time.Since(start).Milliseconds())
	return out, nil
}
