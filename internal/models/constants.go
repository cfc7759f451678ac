// Package models contains data types and constants for the chat completion API.
package models

// Endpoints for the completion API
const (
	DefaultBaseURL      = "https://api.openai.com/v1"
	PathChatCompletions = "/chat/completions"
)

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Model identifies a completion model
type Model struct {
	Name string
}

// Known models
var (
	ModelGPT35Turbo = Model{Name: "gpt-3.5-turbo"}
	ModelGPT4o      = Model{Name: "gpt-4o"}
	ModelGPT4oMini  = Model{Name: "gpt-4o-mini"}

	// DefaultModel matches the model the chat page was built against
	DefaultModel = ModelGPT35Turbo
)

// AllModels returns a list of all known models
func AllModels() []Model {
	return []Model{ModelGPT35Turbo, ModelGPT4o, ModelGPT4oMini}
}

// ModelFromName resolves a short alias or a full identifier.
// Unknown names are passed through so any endpoint-supported model can be used.
func ModelFromName(name string) Model {
	switch name {
	case "", "turbo":
		return DefaultModel
	case "4o":
		return ModelGPT4o
	case "mini":
		return ModelGPT4oMini
	default:
		return Model{Name: name}
	}
}

// DefaultHeaders returns the default headers for completion requests
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "promptin/0.1",
	}
}
