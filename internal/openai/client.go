package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var (
	// DefaultPlannerModels are tried in order when planning a query
	DefaultPlannerModels = []string{openai.GPT4oMini, openai.GPT3Dot5Turbo}
	// DefaultGeneratorModels are tried in order when writing an answer
	DefaultGeneratorModels = []string{openai.GPT4o, openai.GPT4oMini}
	// DefaultSummarizerModels are tried in order when compacting a conversation
	DefaultSummarizerModels = []string{openai.GPT4oMini}
)

// DefaultMaxReferenceRunes bounds each reference body shown to the generator.
const DefaultMaxReferenceRunes = 800

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrNoModels is returned when a model list is empty
	ErrNoModels = errors.New("no models configured")
	// ErrEmptyCompletion is returned when a model replies with no content
	ErrEmptyCompletion = errors.New("model returned no content")
)

// ChatAPI defines the chat completion call of the go-openai client
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures the chat client and its collaborators. BaseURL points the
// client at any OpenAI compatible endpoint.
type Config struct {
	APIKey            string
	BaseURL           string
	PlannerModels     []string
	GeneratorModels   []string
	SummarizerModels  []string
	MaxReferenceRunes int
}

func (c Config) withDefaults() Config {
	if len(c.PlannerModels) == 0 {
		c.PlannerModels = DefaultPlannerModels
	}
	if len(c.GeneratorModels) == 0 {
		c.GeneratorModels = DefaultGeneratorModels
	}
	if len(c.SummarizerModels) == 0 {
		c.SummarizerModels = DefaultSummarizerModels
	}
	if c.MaxReferenceRunes <= 0 {
		c.MaxReferenceRunes = DefaultMaxReferenceRunes
	}
	return c
}

// Client wraps the OpenAI API client
type Client struct {
	api    ChatAPI
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a new client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey}, nil)
}

// NewClientWithConfig creates a new client with explicit configuration.
func NewClientWithConfig(cfg Config, logger *zap.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return NewClientWithAPI(openai.NewClientWithConfig(oc), cfg, logger)
}

// NewClientWithAPI creates a client over an existing ChatAPI.
func NewClientWithAPI(api ChatAPI, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, cfg: cfg.withDefaults(), logger: logger}
}

// NewClientFromEnv creates a new client using the OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Complete sends one system and user message pair to each model in turn and
// returns the first non-empty reply together with the model that produced it.
func (c *Client) Complete(ctx context.Context, models []string, system, user string, temperature float32) (string, string, error) {
	if strings.TrimSpace(user) == "" {
		return "", "", ErrEmptyText
	}
	if len(models) == 0 {
		return "", "", ErrNoModels
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	var result *multierror.Error
	for _, model := range models {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}

		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       model,
			Messages:    messages,
			Temperature: temperature,
		})
		if err == nil && (len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "") {
			err = ErrEmptyCompletion
		}
		if err != nil {
			c.logger.Warn("chat model failed", zap.String("model", model), zap.Error(err))
			result = multierror.Append(result, fmt.Errorf("%s: %w", model, err))
			continue
		}

		return resp.Choices[0].Message.Content, model, nil
	}

	return "", "", fmt.Errorf("all models failed: %w", result.ErrorOrNil())
}
