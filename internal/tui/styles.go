// Package tui provides the terminal chat interface for promptin.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	apierrors "github.com/diogo/promptin/internal/errors"
)

// Palette
var (
	colorBorder    = lipgloss.Color("#3b4261")
	colorPrimary   = lipgloss.Color("#7aa2f7")
	colorSecondary = lipgloss.Color("#bb9af7")
	colorAccent    = lipgloss.Color("#7dcfff")
	colorWarning   = lipgloss.Color("#e0af68")
	colorError     = lipgloss.Color("#f7768e")
	colorSuccess   = lipgloss.Color("#9ece6a")
	colorText      = lipgloss.Color("#c0caf5")
	colorTextDim   = lipgloss.Color("#9aa5ce")
	colorTextMute  = lipgloss.Color("#565f89")
)

var (
	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorTextMute).
			Italic(true)

	promptPanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder).
				Padding(0, 1)

	promptPanelFocusedStyle = promptPanelStyle.
				BorderForeground(colorAccent)

	promptLockedStyle = lipgloss.NewStyle().
				Foreground(colorWarning)

	messagesAreaStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder).
				Padding(0, 1)

	userBubbleStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorSecondary).
			Padding(0, 1).
			MarginLeft(4)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true).
			MarginLeft(4)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginRight(4)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	noReplyStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Italic(true).
			MarginLeft(4)

	inputPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	inputPanelFocusedStyle = inputPanelStyle.
				BorderForeground(colorAccent)

	inputLabelStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	loadingStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorTextMute)

	statusKeyStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Bold(true)

	statusDescStyle = lipgloss.NewStyle().
			Foreground(colorTextMute)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Align(lipgloss.Center)
)

// FormatError returns a styled error message with a hint for the common
// failure classes
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	detailStyle := lipgloss.NewStyle().Foreground(colorTextDim).PaddingLeft(2)
	tipStyle := lipgloss.NewStyle().Foreground(colorPrimary).PaddingLeft(2)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", err)))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString("\n")
		sb.WriteString(detailStyle.Render(fmt.Sprintf("HTTP Status: %d", status)))
	}
	if endpoint := apierrors.GetEndpoint(err); endpoint != "" {
		sb.WriteString("\n")
		sb.WriteString(detailStyle.Render(fmt.Sprintf("Endpoint: %s", endpoint)))
	}

	if hint := ErrorHint(err); hint != "" {
		sb.WriteString("\n")
		sb.WriteString(tipStyle.Render("Hint: " + hint))
	}

	return sb.String()
}

// ErrorHint suggests what to do about err, or returns ""
func ErrorHint(err error) string {
	switch {
	case err == nil:
		return ""
	case apierrors.IsBusyError(err):
		return "Wait for the current reply to arrive"
	case apierrors.IsAuthError(err):
		return "Check OPENAI_API_KEY or api_key in the config file"
	case apierrors.IsRateLimitError(err):
		return "Usage limit reached. Try again later or use a different model"
	case apierrors.IsTimeoutError(err):
		return "Request timed out. Press Enter on a new message to try again"
	case apierrors.IsNetworkError(err):
		return "Check your connection and the configured base_url"
	}
	return ""
}
