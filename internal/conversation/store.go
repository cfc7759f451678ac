// Package conversation holds the in-memory state of a single chat: the ordered
// transcript, the set-once system prompt and the in-flight request flag.
package conversation

import (
	"sync"

	apierrors "github.com/diogo/promptin/internal/errors"
	"github.com/diogo/promptin/internal/models"
)

// Submission is the result of a successful submit. It carries everything the
// completion gateway needs, captured at submit time, plus the generation the
// request was issued against.
type Submission struct {
	Turn         models.Turn
	Generation   uint64
	SystemPrompt string
	History      []models.Turn // turns before Turn was appended
	Input        string
}

// Conversation is the aggregate behind one chat session.
// All mutation goes through its methods; fields are never touched directly.
type Conversation struct {
	mu           sync.RWMutex
	systemPrompt string
	promptSet    bool
	frozen       bool
	turns        []models.Turn
	pending      bool
	generation   uint64
	lastErr      error
}

// New creates an empty conversation
func New() *Conversation {
	return &Conversation{}
}

// copyTurns creates a copy of the turns slice so callers never share backing storage
func copyTurns(t []models.Turn) []models.Turn {
	if len(t) == 0 {
		return []models.Turn{}
	}
	result := make([]models.Turn, len(t))
	copy(result, t)
	return result
}

// SetSystemPrompt sets the system prompt. It fails while a request is pending
// and once the prompt has been used by a successful round trip.
func (c *Conversation) SetSystemPrompt(prompt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		return apierrors.NewBusyError(c.generation)
	}
	if c.frozen {
		return apierrors.ErrPromptFrozen
	}
	c.systemPrompt = prompt
	c.promptSet = true
	return nil
}

// SystemPrompt returns the prompt and whether it has been set
func (c *Conversation) SystemPrompt() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.systemPrompt, c.promptSet
}

// Frozen reports whether the system prompt can no longer change
func (c *Conversation) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}

// SubmitUserTurn appends a USER turn and marks the conversation pending.
// The text is stored verbatim; an empty string yields an empty turn.
func (c *Conversation) SubmitUserTurn(text string) (*Submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		return nil, apierrors.NewBusyError(c.generation)
	}

	history := copyTurns(c.turns)
	turn := models.UserTurn(text)
	c.turns = append(c.turns, turn)
	c.pending = true
	c.lastErr = nil

	return &Submission{
		Turn:         turn,
		Generation:   c.generation,
		SystemPrompt: c.systemPrompt,
		History:      history,
		Input:        text,
	}, nil
}

// CompleteAssistantTurn appends the ASSISTANT turn answering the pending
// request. A nil content degrades to an empty turn. Responses issued against
// an earlier generation, or arriving when nothing is pending, are rejected
// with ErrStaleResponse and leave the conversation untouched.
func (c *Conversation) CompleteAssistantTurn(generation uint64, content *string) (models.Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation || !c.pending {
		return models.Turn{}, apierrors.ErrStaleResponse
	}

	text := ""
	if content != nil {
		text = *content
	}

	turn := models.AssistantTurn(text)
	c.turns = append(c.turns, turn)
	c.pending = false
	c.frozen = true
	return turn, nil
}

// FailPending clears the pending flag after a failed request. The user turn
// already appended stays in the transcript.
func (c *Conversation) FailPending(generation uint64, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation || !c.pending {
		return apierrors.ErrStaleResponse
	}

	c.pending = false
	c.lastErr = err
	return nil
}

// Reset empties the conversation and starts a new generation.
// Requests still in flight become stale.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = nil
	c.systemPrompt = ""
	c.promptSet = false
	c.frozen = false
	c.pending = false
	c.lastErr = nil
	c.generation++
}

// Turns returns a copy of the transcript
func (c *Conversation) Turns() []models.Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyTurns(c.turns)
}

// Len returns the number of turns
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Pending reports whether a completion request is outstanding
func (c *Conversation) Pending() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending
}

// Generation returns the current generation counter
func (c *Conversation) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// LastError returns the error recorded by the most recent FailPending
func (c *Conversation) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Dangling reports whether the last turn is a USER turn that will not get a
// reply, i.e. its request failed.
func (c *Conversation) Dangling() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pending || len(c.turns) == 0 {
		return false
	}
	return c.turns[len(c.turns)-1].IsUser()
}

// ExportTranscript renders the transcript as plain text
func (c *Conversation) ExportTranscript() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return RenderTranscript(c.turns)
}
