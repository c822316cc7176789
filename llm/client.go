package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jonwraymond/dataconn/config"
)

// Defaults applied when the config section leaves a key out.
const (
	DefaultModel          = "text-davinci-003"
	DefaultEmbeddingModel = "text-embedding-ada-002"
	DefaultChatModel      = "gpt-4o"
	DefaultMaxTokens      = 256
	DefaultTemperature    = 1.0
	DefaultEndpoint       = "https://api.openai.com"
	DefaultTimeout        = 60 * time.Second
)

// Settings are the resolved model parameters of a connection.
type Settings struct {
	Model          string
	EmbeddingModel string
	ChatModel      string
	MaxTokens      int
	Temperature    float64
	Endpoint       string
	Timeout        time.Duration
	RateLimit      float64
}

// SettingsFromSection reads Settings from a config section.
func SettingsFromSection(cfg config.Section) (Settings, error) {
	s := Settings{
		Model:          cfg.StringOr("model", DefaultModel),
		EmbeddingModel: cfg.StringOr("embedding_model", DefaultEmbeddingModel),
		ChatModel:      cfg.StringOr("chat_model", DefaultChatModel),
		Endpoint:       strings.TrimSuffix(cfg.StringOr("endpoint", DefaultEndpoint), "/"),
	}
	var err error
	if s.MaxTokens, err = cfg.Int("max_tokens", DefaultMaxTokens); err != nil {
		return Settings{}, err
	}
	if s.Temperature, err = cfg.Float("temperature", DefaultTemperature); err != nil {
		return Settings{}, err
	}
	if s.Timeout, err = cfg.Duration("timeout", DefaultTimeout); err != nil {
		return Settings{}, err
	}
	if s.RateLimit, err = cfg.Float("rate_limit", 0); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Client is the native handle: an API client bound to one key.
type Client struct {
	api      *openai.Client
	settings Settings
	closed   atomic.Bool
}

func newClient(cfg config.Section) (*Client, error) {
	key := cfg.String("api_key")
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	settings, err := SettingsFromSection(cfg)
	if err != nil {
		return nil, err
	}
	oc := openai.DefaultConfig(key)
	oc.BaseURL = settings.Endpoint + "/v1"
	oc.HTTPClient = &http.Client{Timeout: settings.Timeout}
	if org := cfg.String("organization"); org != "" {
		oc.OrgID = org
	}
	return &Client{api: openai.NewClientWithConfig(oc), settings: settings}, nil
}

// API returns the underlying go-openai client.
func (c *Client) API() *openai.Client { return c.api }

// Settings returns the client's model parameters.
func (c *Client) Settings() Settings { return c.settings }

// apiDriver builds Clients. There is no cheap authenticated probe, so Ping
// only checks that the client is open.
type apiDriver struct{}

func (apiDriver) Connect(_ context.Context, cfg config.Section) (*Client, error) {
	return newClient(cfg)
}

func (apiDriver) Ping(_ context.Context, c *Client) error {
	if c == nil || c.closed.Load() {
		return fmt.Errorf("llm: client closed")
	}
	return nil
}

func (apiDriver) Close(c *Client) error {
	if c != nil {
		c.closed.Store(true)
	}
	return nil
}
