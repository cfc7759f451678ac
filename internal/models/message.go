package models

// Speaker identifies who produced a turn
type Speaker int

const (
	SpeakerUser Speaker = iota
	SpeakerAssistant
)

// String returns the transcript label for the speaker
func (s Speaker) String() string {
	if s == SpeakerAssistant {
		return "Assistant"
	}
	return "USER"
}

// Role returns the chat-completion role for the speaker
func (s Speaker) Role() string {
	if s == SpeakerAssistant {
		return RoleAssistant
	}
	return RoleUser
}

// Turn is one transcript entry. Turns are values and never change once appended.
type Turn struct {
	Speaker Speaker
	Content string
}

// UserTurn creates a turn spoken by the user
func UserTurn(content string) Turn {
	return Turn{Speaker: SpeakerUser, Content: content}
}

// AssistantTurn creates a turn spoken by the assistant
func AssistantTurn(content string) Turn {
	return Turn{Speaker: SpeakerAssistant, Content: content}
}

// IsUser reports whether the turn was spoken by the user
func (t Turn) IsUser() bool {
	return t.Speaker == SpeakerUser
}

// Line renders the turn as a single transcript line, newline-terminated
func (t Turn) Line() string {
	return t.Speaker.String() + ": " + t.Content + "\n"
}
