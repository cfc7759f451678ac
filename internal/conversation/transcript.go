package conversation

import (
	"strings"

	"github.com/diogo/promptin/internal/models"
)

// RenderTranscript renders turns one per line as "USER: <content>" or
// "Assistant: <content>", each newline-terminated.
func RenderTranscript(turns []models.Turn) string {
	var sb strings.Builder
	for _, turn := range turns {
		sb.WriteString(turn.Line())
	}
	return sb.String()
}

var speakerPrefixes = []struct {
	prefix  string
	speaker models.Speaker
}{
	{models.SpeakerUser.String() + ": ", models.SpeakerUser},
	{models.SpeakerAssistant.String() + ": ", models.SpeakerAssistant},
}

// ParseTranscript recovers turns from text produced by RenderTranscript.
// A line without a known prefix continues the previous turn, so multi-line
// content survives as long as none of its lines starts with a prefix.
// Leading lines before the first prefix are ignored.
func ParseTranscript(text string) []models.Turn {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []models.Turn{}
	}

	turns := []models.Turn{}
	for _, line := range strings.Split(text, "\n") {
		matched := false
		for _, p := range speakerPrefixes {
			if strings.HasPrefix(line, p.prefix) {
				turns = append(turns, models.Turn{Speaker: p.speaker, Content: strings.TrimPrefix(line, p.prefix)})
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		// bare label, e.g. after an editor stripped the trailing space
		if line == "USER:" || line == "Assistant:" {
			speaker := models.SpeakerUser
			if line == "Assistant:" {
				speaker = models.SpeakerAssistant
			}
			turns = append(turns, models.Turn{Speaker: speaker})
			continue
		}
		if len(turns) > 0 {
			last := &turns[len(turns)-1]
			last.Content += "\n" + line
		}
	}
	return turns
}
