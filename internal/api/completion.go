package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/promptin/internal/errors"
	"github.com/diogo/promptin/internal/models"
)

// Separator delimits the history block inside a folded user message
const Separator = "-----------------"

// Snapshot is the input to a completion request
type Snapshot struct {
	SystemPrompt string
	History      []models.Turn
	Input        string
}

// CompletionGateway produces the assistant reply for a snapshot.
// A nil content with a nil error means the endpoint returned no text.
type CompletionGateway interface {
	RequestCompletion(ctx context.Context, snap Snapshot) (*string, error)
}

var _ CompletionGateway = (*Client)(nil)

// FoldHistory renders the single user message of a folded request
func FoldHistory(systemPrompt string, history []models.Turn, input string) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n")
	sb.WriteString(Separator)
	sb.WriteString("\nPREVIOUS CONVERSATION:\n")
	for _, turn := range history {
		sb.WriteString(turn.Line())
	}
	sb.WriteString("\n")
	sb.WriteString(Separator)
	sb.WriteString("\nUSER INPUT: ")
	sb.WriteString(input)
	return sb.String()
}

// BuildRequest lays out the request body for a snapshot. The result
// depends only on the snapshot and the client configuration.
func (c *Client) BuildRequest(snap Snapshot) models.ChatRequest {
	c.mu.RLock()
	model := c.model
	c.mu.RUnlock()

	history := snap.History
	if c.historyLimit > 0 && len(history) > c.historyLimit {
		history = history[len(history)-c.historyLimit:]
	}

	messages := []models.ChatMessage{
		{Role: models.RoleSystem, Content: snap.SystemPrompt},
	}

	switch c.style {
	case StyleTurns:
		for _, turn := range history {
			messages = append(messages, models.ChatMessage{
				Role:    turn.Speaker.Role(),
				Content: turn.Content,
			})
		}
		messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: snap.Input})
	default:
		messages = append(messages, models.ChatMessage{
			Role:    models.RoleUser,
			Content: FoldHistory(snap.SystemPrompt, history, snap.Input),
		})
	}

	return models.ChatRequest{
		Model:       model.Name,
		Temperature: c.temperature,
		Stream:      false,
		Messages:    messages,
	}
}

// RequestCompletion sends the snapshot to the endpoint and returns the
// content of the first choice
func (c *Client) RequestCompletion(ctx context.Context, snap Snapshot) (*string, error) {
	if c.IsClosed() {
		return nil, apierrors.NewNetworkError("completion", c.Endpoint(), errors.New("client is closed"))
	}

	completion, err := c.Complete(ctx, snap)
	if err != nil {
		return nil, err
	}
	return completion.Content(), nil
}

// Complete performs the round trip and returns the decoded response
func (c *Client) Complete(ctx context.Context, snap Snapshot) (*models.Completion, error) {
	endpoint := c.Endpoint()
	requestID := uuid.NewString()
	log := c.logger.With(
		slog.String("request_id", requestID),
		slog.String("endpoint", endpoint),
	)

	body, err := json.Marshal(c.BuildRequest(snap))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apierrors.NewNetworkError("create request", endpoint, err)
	}
	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}
	req.Header.Set("X-Request-ID", requestID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	log.Debug("sending completion request",
		slog.Int("history_turns", len(snap.History)),
		slog.Int("bytes", len(body)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("completion request failed", slog.String("error", err.Error()))
		if isTimeout(ctx, err) {
			return nil, apierrors.NewTimeoutError(err.Error())
		}
		return nil, apierrors.NewNetworkError("completion", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, apierrors.NewTimeoutError(err.Error())
		}
		return nil, apierrors.NewNetworkError("read response", endpoint, err)
	}

	log.Debug("completion response received",
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, endpoint, respBody)
	}

	return ParseCompletion(respBody)
}

// ParseCompletion decodes a chat completion response body. A null or
// missing content on the first choice yields a nil Content.
func ParseCompletion(body []byte) (*models.Completion, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("response is not valid JSON", "")
	}

	root := gjson.ParseBytes(body)
	choices := root.Get("choices")
	if !choices.Exists() || !choices.IsArray() {
		return nil, apierrors.NewParseError("response has no choices array", "choices")
	}

	completion := &models.Completion{
		ID:    root.Get("id").String(),
		Model: root.Get("model").String(),
		Usage: models.Usage{
			PromptTokens:     root.Get("usage.prompt_tokens").Int(),
			CompletionTokens: root.Get("usage.completion_tokens").Int(),
			TotalTokens:      root.Get("usage.total_tokens").Int(),
		},
	}

	for i, choice := range choices.Array() {
		parsed := models.Choice{
			Index:        int(choice.Get("index").Int()),
			FinishReason: choice.Get("finish_reason").String(),
		}
		if !choice.Get("index").Exists() {
			parsed.Index = i
		}
		content := choice.Get("message.content")
		if content.Exists() && content.Type != gjson.Null {
			text := content.String()
			parsed.Content = &text
		}
		completion.Choices = append(completion.Choices, parsed)
	}

	return completion, nil
}

func statusError(status int, endpoint string, body []byte) error {
	message := gjson.GetBytes(body, "error.message").String()
	if message == "" {
		message = http.StatusText(status)
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apierrors.NewAuthError(message)
	case http.StatusTooManyRequests:
		return apierrors.NewUsageLimitError(message)
	default:
		return apierrors.NewAPIErrorWithBody(status, endpoint, message, string(body))
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
