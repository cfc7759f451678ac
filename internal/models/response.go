package models

// ChatMessage is a single role-tagged message sent to the completion endpoint
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body posted to the chat completions endpoint
type ChatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
	Messages    []ChatMessage `json:"messages"`
}

// Usage reports token accounting returned by the endpoint, when present
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// Choice represents a single completion candidate
type Choice struct {
	Index        int
	Content      *string // nil when the endpoint returned null or no content
	FinishReason string
}

// Completion represents the parsed response of a chat completion call
type Completion struct {
	ID      string
	Model   string
	Choices []Choice
	Usage   Usage
}

// Content returns the first candidate's content, or nil when there is none
func (c *Completion) Content() *string {
	if c == nil || len(c.Choices) == 0 {
		return nil
	}
	return c.Choices[0].Content
}

// Text returns the first candidate's content, or "" when there is none
func (c *Completion) Text() string {
	if content := c.Content(); content != nil {
		return *content
	}
	return ""
}
