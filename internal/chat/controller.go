// Package chat drives one conversation against a completion gateway.
// Frontends (TUI, HTTP, one-shot CLI) share this flow.
package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/diogo/promptin/internal/api"
	"github.com/diogo/promptin/internal/conversation"
	apierrors "github.com/diogo/promptin/internal/errors"
	"github.com/diogo/promptin/internal/export"
	"github.com/diogo/promptin/internal/models"
)

// Outcome is the result of resolving one submission
type Outcome struct {
	Submission *conversation.Submission
	Reply      models.Turn
	Err        error
	// Stale is set when the conversation was reset while the request was
	// in flight. The response was dropped.
	Stale bool
}

// OK reports whether an assistant turn was appended
func (o Outcome) OK() bool {
	return o.Err == nil && !o.Stale
}

// Controller couples a Conversation with a CompletionGateway
type Controller struct {
	conv    *conversation.Conversation
	gateway api.CompletionGateway
	logger  *slog.Logger
	timeout time.Duration

	mu        sync.Mutex
	genCtx    context.Context
	genCancel context.CancelFunc
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithConversation uses an existing conversation instead of a fresh one
func WithConversation(conv *conversation.Conversation) Option {
	return func(c *Controller) {
		if conv != nil {
			c.conv = conv
		}
	}
}

// WithTimeout bounds each completion request. 0 leaves it to the gateway.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		c.timeout = timeout
	}
}

// New creates a Controller over gateway
func New(gateway api.CompletionGateway, opts ...Option) *Controller {
	c := &Controller{
		conv:    conversation.New(),
		gateway: gateway,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.genCtx, c.genCancel = context.WithCancel(context.Background())
	return c
}

// Conversation returns the underlying conversation
func (c *Controller) Conversation() *conversation.Conversation {
	return c.conv
}

// SetSystemPrompt sets the prompt used by the next request
func (c *Controller) SetSystemPrompt(prompt string) error {
	return c.conv.SetSystemPrompt(prompt)
}

// Begin submits text as a USER turn
func (c *Controller) Begin(text string) (*conversation.Submission, error) {
	sub, err := c.conv.SubmitUserTurn(text)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("user turn submitted",
		slog.Uint64("generation", sub.Generation),
		slog.Int("history_turns", len(sub.History)),
	)
	return sub, nil
}

// Request asks the gateway for the reply to sub. It does not touch the
// conversation. The call is canceled when the conversation is reset.
func (c *Controller) Request(ctx context.Context, sub *conversation.Submission) (*string, error) {
	c.mu.Lock()
	genCtx := c.genCtx
	current := c.conv.Generation()
	c.mu.Unlock()

	if sub.Generation != current {
		return nil, apierrors.ErrStaleResponse
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(genCtx, cancel)
	defer stop()

	if c.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, c.timeout)
		defer cancelTimeout()
	}

	return c.gateway.RequestCompletion(ctx, api.Snapshot{
		SystemPrompt: sub.SystemPrompt,
		History:      sub.History,
		Input:        sub.Input,
	})
}

// Resolve applies the gateway result to the conversation
func (c *Controller) Resolve(sub *conversation.Submission, content *string, err error) Outcome {
	out := Outcome{Submission: sub}

	if err != nil {
		if ferr := c.conv.FailPending(sub.Generation, err); ferr != nil {
			c.logger.Debug("dropping stale failure",
				slog.Uint64("generation", sub.Generation),
				slog.String("error", err.Error()),
			)
			out.Stale = true
			out.Err = ferr
			return out
		}
		c.logger.Warn("completion failed",
			slog.Uint64("generation", sub.Generation),
			slog.String("error", err.Error()),
		)
		out.Err = err
		return out
	}

	turn, cerr := c.conv.CompleteAssistantTurn(sub.Generation, content)
	if cerr != nil {
		c.logger.Debug("dropping stale response", slog.Uint64("generation", sub.Generation))
		out.Stale = true
		out.Err = cerr
		return out
	}

	if content == nil {
		c.logger.Info("endpoint returned no content", slog.Uint64("generation", sub.Generation))
	}
	out.Reply = turn
	return out
}

// Send runs Begin, Request and Resolve in one call. A BusyError from
// Begin is returned in Outcome.Err with a nil Submission.
func (c *Controller) Send(ctx context.Context, text string) Outcome {
	sub, err := c.Begin(text)
	if err != nil {
		return Outcome{Err: err}
	}
	content, err := c.Request(ctx, sub)
	return c.Resolve(sub, content, err)
}

// Reset clears the conversation and cancels the request in flight, if any
func (c *Controller) Reset() {
	c.mu.Lock()
	// reset first so the canceled request resolves as stale
	c.conv.Reset()
	c.genCancel()
	c.genCtx, c.genCancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	c.logger.Debug("conversation reset", slog.Uint64("generation", c.conv.Generation()))
}

// Close cancels any request in flight
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.genCancel()
}

// Export returns the transcript as plain text
func (c *Controller) Export() string {
	return c.conv.ExportTranscript()
}

// Document renders the conversation in the given format
func (c *Controller) Document(format export.Format) (export.Document, error) {
	prompt, _ := c.conv.SystemPrompt()
	return export.Build(export.Source{
		SystemPrompt: prompt,
		Turns:        c.conv.Turns(),
	}, format)
}

// ExportTo renders the conversation and hands it to sink
func (c *Controller) ExportTo(ctx context.Context, sink export.Sink, format export.Format) (string, error) {
	doc, err := c.Document(format)
	if err != nil {
		return "", err
	}
	return sink.Write(ctx, doc)
}
