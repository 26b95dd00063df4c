package llm_client

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type openAIFlavor struct {
	name         string
	keyEnv       string
	baseURL      string
	defaultModel string
}

var (
	flavorGroq = openAIFlavor{
		name:         "groq",
		keyEnv:       "GROQ_API_KEY",
		baseURL:      "https://api.groq.com/openai/v1",
		defaultModel: "llama-3.1-8b-instant",
	}
	flavorOpenAI = openAIFlavor{
		name:         "openai",
		keyEnv:       "OPENAI_API_KEY",
		defaultModel: "gpt-4o-mini",
	}
)

// openAIProvider talks to any OpenAI-compatible chat completions endpoint.
type openAIProvider struct {
	flavor openAIFlavor
	client *openai.Client
	model  string
}

func (p *openAIProvider) Init(_ context.Context, cfg Config) error {
	apiKey := strings.TrimSpace(os.Getenv(p.flavor.keyEnv))
	if apiKey == "" {
		return fmt.Errorf("%s is not set", p.flavor.keyEnv)
	}
	oc := openai.DefaultConfig(apiKey)
	switch {
	case strings.TrimSpace(cfg.BaseURL) != "":
		oc.BaseURL = strings.TrimSpace(cfg.BaseURL)
	case p.flavor.baseURL != "":
		oc.BaseURL = p.flavor.baseURL
	}
	p.client = openai.NewClientWithConfig(oc)
	if strings.TrimSpace(cfg.Model) != "" {
		p.model = cfg.Model
	} else {
		p.model = p.flavor.defaultModel
	}
	return nil
}

func (p *openAIProvider) DefaultModel() string { return p.flavor.defaultModel }

func (p *openAIProvider) AllowedModelOrDefault(model string) string {
	m := strings.TrimSpace(model)
	if m == "" {
		return p.model
	}
	return m
}

func (p *openAIProvider) Generate(ctx context.Context, prompt, model string) (string, error) {
	if p.client == nil {
		return "", ErrNotInitialized
	}
	req := openai.ChatCompletionRequest{
		Model: p.AllowedModelOrDefault(model),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", p.flavor.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", p.flavor.name, ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
