package commands

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/diogo/promptin/internal/api"
	"github.com/diogo/promptin/internal/chat"
	"github.com/diogo/promptin/internal/tui"
)

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// Gateway, when set, replaces the HTTP client built from config
	Gateway api.CompletionGateway

	// RunChat starts the interactive chat screen
	RunChat func(ctrl *chat.Controller, opts tui.Options) error

	// Stdin is read by ask when no message argument is given
	Stdin io.Reader

	// StdinIsTerminal reports whether Stdin is interactive
	StdinIsTerminal func() bool

	// StdoutIsTerminal reports whether replies go to a terminal
	StdoutIsTerminal func() bool

	// TerminalWidth returns the output width for rendered replies
	TerminalWidth func() int
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		RunChat: tui.RunChat,
		Stdin:   os.Stdin,
		StdinIsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		StdoutIsTerminal: isStdoutTTY,
		TerminalWidth:    getTerminalWidth,
	}
}

func stdinHasData(d *Dependencies) bool {
	return d.StdinIsTerminal != nil && !d.StdinIsTerminal()
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
