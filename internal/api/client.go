// Package api implements the completion gateway: it turns a conversation
// snapshot into a chat completion request and maps the response back.
package api

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	apierrors "github.com/diogo/promptin/internal/errors"
	"github.com/diogo/promptin/internal/models"
)

// MessageStyle selects how the conversation history is laid out in the request
type MessageStyle string

const (
	// StyleFolded sends one system message and a single user message that
	// carries the prompt, the rendered history and the new input.
	StyleFolded MessageStyle = "folded"
	// StyleTurns sends one role-tagged message per historical turn.
	StyleTurns MessageStyle = "turns"
)

// ParseMessageStyle converts a config value to a MessageStyle
func ParseMessageStyle(s string) (MessageStyle, error) {
	switch MessageStyle(strings.ToLower(s)) {
	case "", StyleFolded:
		return StyleFolded, nil
	case StyleTurns:
		return StyleTurns, nil
	default:
		return "", fmt.Errorf("unknown message style %q (want %q or %q)", s, StyleFolded, StyleTurns)
	}
}

const (
	// DefaultTimeout bounds a single completion call
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize is the maximum response body read from the endpoint
	MaxResponseSize = 10 * 1024 * 1024
)

// Client is the completion gateway backed by an OpenAI-compatible endpoint
type Client struct {
	httpClient   tls_client.HttpClient
	baseURL      string
	apiKey       string
	model        models.Model
	temperature  float64
	historyLimit int
	style        MessageStyle
	timeout      time.Duration
	logger       *slog.Logger
	mu           sync.RWMutex
	closed       bool
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithModel sets the model sent with every request
func WithModel(model models.Model) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithBaseURL sets the endpoint base URL (without the /chat/completions path)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithAPIKey sets the bearer token
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTemperature sets the sampling temperature. The default of 0 keeps
// responses reproducible.
func WithTemperature(temperature float64) ClientOption {
	return func(c *Client) {
		c.temperature = temperature
	}
}

// WithHistoryLimit caps how many of the most recent turns are re-sent.
// 0 sends the full history.
func WithHistoryLimit(limit int) ClientOption {
	return func(c *Client) {
		if limit < 0 {
			limit = 0
		}
		c.historyLimit = limit
	}
}

// WithMessageStyle selects the request layout
func WithMessageStyle(style MessageStyle) ClientOption {
	return func(c *Client) {
		c.style = style
	}
}

// WithTimeout sets the transport timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient injects the HTTP client (used by tests)
func WithHTTPClient(httpClient tls_client.HttpClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new Client
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		baseURL: models.DefaultBaseURL,
		model:   models.DefaultModel,
		style:   StyleFolded,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" && client.baseURL == models.DefaultBaseURL {
		return nil, apierrors.ErrNoAPIKey
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(int(client.timeout / time.Second)),
			tls_client.WithClientProfile(profiles.Chrome_120),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// Close releases idle connections. Requests after Close fail.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.httpClient.CloseIdleConnections()
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Endpoint returns the full chat completions URL
func (c *Client) Endpoint() string {
	return c.baseURL + models.PathChatCompletions
}
