// Package export turns a conversation into a downloadable document and
// hands it to a sink (file, clipboard or any writer).
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/diogo/promptin/internal/conversation"
	"github.com/diogo/promptin/internal/models"
)

// Format represents the format for exporting conversations
type Format string

const (
	FormatPlain    Format = "plain"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Document names and MIME types
const (
	DefaultName  = "chat.txt"
	MIMEPlain    = "text/plain;charset=utf-8"
	MIMEMarkdown = "text/markdown;charset=utf-8"
	MIMEJSON     = "application/json"
)

// ParseFormat converts a flag value to a Format
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatPlain, "txt", "text":
		return FormatPlain, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Document is a named blob ready to hand to a sink
type Document struct {
	Name     string
	MIMEType string
	Body     string
}

// Source is what gets exported
type Source struct {
	SystemPrompt string
	Turns        []models.Turn
}

// Build renders src in the requested format. The plain format is the
// transcript exactly as the conversation exports it.
func Build(src Source, format Format) (Document, error) {
	switch format {
	case "", FormatPlain:
		return Document{
			Name:     DefaultName,
			MIMEType: MIMEPlain,
			Body:     conversation.RenderTranscript(src.Turns),
		}, nil
	case FormatMarkdown:
		return Document{
			Name:     "chat.md",
			MIMEType: MIMEMarkdown,
			Body:     toMarkdown(src),
		}, nil
	case FormatJSON:
		body, err := toJSON(src)
		if err != nil {
			return Document{}, err
		}
		return Document{
			Name:     "chat.json",
			MIMEType: MIMEJSON,
			Body:     body,
		}, nil
	default:
		return Document{}, fmt.Errorf("unknown export format %q", format)
	}
}

// PlainDocument wraps an already rendered transcript
func PlainDocument(transcript string) Document {
	return Document{Name: DefaultName, MIMEType: MIMEPlain, Body: transcript}
}

func toMarkdown(src Source) string {
	var sb strings.Builder

	sb.WriteString("# Conversation\n\n")
	if src.SystemPrompt != "" {
		sb.WriteString("**System prompt:**\n\n")
		for _, line := range strings.Split(src.SystemPrompt, "\n") {
			sb.WriteString("> ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("**Turns:** %d\n\n---\n\n", len(src.Turns)))

	for i, turn := range src.Turns {
		role := "User"
		if !turn.IsUser() {
			role = "Assistant"
		}
		sb.WriteString("## ")
		sb.WriteString(role)
		sb.WriteString("\n\n")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")

		if i < len(src.Turns)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

func toJSON(src Source) (string, error) {
	type exportTurn struct {
		Speaker string `json:"speaker"`
		Content string `json:"content"`
	}
	type exportConversation struct {
		SystemPrompt string       `json:"system_prompt"`
		Turns        []exportTurn `json:"turns"`
	}

	out := exportConversation{
		SystemPrompt: src.SystemPrompt,
		Turns:        make([]exportTurn, len(src.Turns)),
	}
	for i, turn := range src.Turns {
		out.Turns[i] = exportTurn{Speaker: turn.Speaker.String(), Content: turn.Content}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}
	return string(data) + "\n", nil
}

// Sink receives an exported document and reports where it went
type Sink interface {
	Write(ctx context.Context, doc Document) (string, error)
}

// FileSink writes documents into a directory, replacing any previous export
type FileSink struct {
	Dir string
}

// Write stores doc as Dir/doc.Name and returns the file path
func (s FileSink) Write(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := filepath.Base(doc.Name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = DefaultName
	}

	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, []byte(doc.Body), 0o600); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// ClipboardSink copies document bodies to the system clipboard
type ClipboardSink struct {
	// WriteAll defaults to clipboard.WriteAll
	WriteAll func(text string) error
}

// Write copies doc.Body to the clipboard
func (s ClipboardSink) Write(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	write := s.WriteAll
	if write == nil {
		write = clipboard.WriteAll
	}
	if err := write(doc.Body); err != nil {
		return "", fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return "clipboard", nil
}

// WriterSink streams document bodies to an io.Writer
type WriterSink struct {
	W     io.Writer
	Label string
}

// Write copies doc.Body to the writer
func (s WriterSink) Write(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := io.WriteString(s.W, doc.Body); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	if s.Label == "" {
		return doc.Name, nil
	}
	return s.Label, nil
}
