package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jonwraymond/dataconn/cache"
	"github.com/jonwraymond/dataconn/connection"
	"github.com/jonwraymond/dataconn/resilience"
)

// Kind is the tag of the LLM connection type.
const Kind = "openai"

// Cache defaults.
const (
	DefaultTTL            = time.Hour
	DefaultChatMaxEntries = 10000
)

// Type registers the LLM connection with a connection.Manager.
var Type = connection.Type{
	Kind:        Kind,
	DefaultName: "openai",
	New:         New,
}

// Message is one chat message.
type Message = openai.ChatCompletionMessage

// UserMessage returns a message with the user role.
func UserMessage(content string) Message {
	return Message{Role: openai.ChatMessageRoleUser, Content: content}
}

// SystemMessage returns a message with the system role.
func SystemMessage(content string) Message {
	return Message{Role: openai.ChatMessageRoleSystem, Content: content}
}

// Conn is an LLM connection.
type Conn struct {
	*connection.Base[*Client]
	settings Settings
	limiter  *resilience.RateLimiter
}

// New builds a Conn from env.
func New(ctx context.Context, env connection.Env) (connection.Connection, error) {
	settings, err := SettingsFromSection(env.Config)
	if err != nil {
		return nil, err
	}
	base, err := connection.NewBase(ctx, env, apiDriver{})
	if err != nil {
		return nil, err
	}
	c := &Conn{Base: base, settings: settings}
	if settings.RateLimit > 0 {
		c.limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: settings.RateLimit})
	}
	return c, nil
}

// Settings returns the resolved model parameters.
func (c *Conn) Settings() Settings { return c.settings }

// Client returns the installed handle.
func (c *Conn) Client() (*Client, error) { return c.Handle() }

// Option tunes one call.
type Option func(*callOptions)

type callOptions struct {
	model       string
	maxTokens   int
	temperature *float64
	read        []connection.ReadOption
}

// WithModel overrides the configured model for the call.
func WithModel(model string) Option {
	return func(o *callOptions) { o.model = model }
}

// WithMaxTokens overrides max_tokens.
func WithMaxTokens(n int) Option {
	return func(o *callOptions) { o.maxTokens = n }
}

// WithTemperature overrides temperature.
func WithTemperature(t float64) Option {
	return func(o *callOptions) { o.temperature = &t }
}

// WithTTL caches the result for d; 0 disables caching.
func WithTTL(d time.Duration) Option {
	return WithReadOptions(connection.WithTTL(d))
}

// WithReadOptions passes options through to connection.Read.
func WithReadOptions(opts ...connection.ReadOption) Option {
	return func(o *callOptions) { o.read = append(o.read, opts...) }
}

func (c *Conn) callOptions(model string, defaults []connection.ReadOption, opts []Option) callOptions {
	o := callOptions{model: model, maxTokens: c.settings.MaxTokens}
	if c.limiter != nil {
		defaults = append(defaults, connection.WithRateLimiter(c.limiter))
	}
	o.read = defaults
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o callOptions) temperatureOr(def float64) float64 {
	if o.temperature != nil {
		return *o.temperature
	}
	return def
}

type completionArgs struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Completion returns the text completion of prompt.
func (c *Conn) Completion(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := c.callOptions(c.settings.Model, []connection.ReadOption{connection.WithTTL(DefaultTTL)}, opts)
	args := completionArgs{
		Model:       o.model,
		Prompt:      prompt,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperatureOr(c.settings.Temperature),
	}
	return connection.Read(ctx, c.Base, "completion", args, complete, o.read...)
}

func complete(ctx context.Context, c *Client, a completionArgs) (string, error) {
	resp, err := c.api.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       a.Model,
		Prompt:      a.Prompt,
		MaxTokens:   a.MaxTokens,
		Temperature: float32(a.Temperature),
		N:           1,
	})
	if err != nil {
		return "", classify(fmt.Errorf("llm: completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", connection.Permanent(ErrEmptyResponse)
	}
	return resp.Choices[0].Text, nil
}

type embeddingArgs struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// Embedding returns the embedding vector of text.
func (c *Conn) Embedding(ctx context.Context, text string, opts ...Option) ([]float32, error) {
	o := c.callOptions(c.settings.EmbeddingModel, []connection.ReadOption{connection.WithTTL(DefaultTTL)}, opts)
	return connection.Read(ctx, c.Base, "embedding", embeddingArgs{Model: o.model, Text: text}, embed, o.read...)
}

func embed(ctx context.Context, c *Client, a embeddingArgs) ([]float32, error) {
	model, err := embeddingModel(a.Model)
	if err != nil {
		return nil, connection.Permanent(err)
	}
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{a.Text},
		Model: model,
	})
	if err != nil {
		return nil, classify(fmt.Errorf("llm: embedding: %w", err))
	}
	if len(resp.Data) == 0 {
		return nil, connection.Permanent(ErrEmptyResponse)
	}
	return resp.Data[0].Embedding, nil
}

// embeddingModel maps a model name onto the client's model enum.
func embeddingModel(name string) (openai.EmbeddingModel, error) {
	var m openai.EmbeddingModel
	if err := m.UnmarshalText([]byte(name)); err != nil || m == openai.Unknown {
		return openai.Unknown, fmt.Errorf("%w: %q", ErrUnknownEmbeddingModel, name)
	}
	return m, nil
}

type chatArgs struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// ChatCompletion answers a conversation. Up to DefaultChatMaxEntries answers
// are cached without expiry; failures are not retried.
func (c *Conn) ChatCompletion(ctx context.Context, messages []Message, opts ...Option) (openai.ChatCompletionResponse, error) {
	o := c.callOptions(c.settings.ChatModel, []connection.ReadOption{
		connection.WithPolicy(cache.Policy{TTL: cache.NoExpiry, MaxEntries: DefaultChatMaxEntries}),
		connection.WithoutRetry(),
	}, opts)
	args := chatArgs{Model: o.model, Messages: messages, MaxTokens: o.maxTokens}
	return connection.Read(ctx, c.Base, "chat_completion", args, chat, o.read...)
}

func chat(ctx context.Context, c *Client, a chatArgs) (openai.ChatCompletionResponse, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     a.Model,
		Messages:  a.Messages,
		MaxTokens: a.MaxTokens,
	})
	if err != nil {
		return openai.ChatCompletionResponse{}, classify(fmt.Errorf("llm: chat completion: %w", err))
	}
	return resp, nil
}

// ChatText returns the content of the first choice of ChatCompletion.
func (c *Conn) ChatText(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	resp, err := c.ChatCompletion(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
