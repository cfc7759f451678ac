package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/diogo/promptin/internal/api"
	"github.com/diogo/promptin/internal/config"
	"github.com/diogo/promptin/internal/conversation"
	"github.com/diogo/promptin/internal/export"
	"github.com/diogo/promptin/internal/logging"
	"github.com/diogo/promptin/internal/models"
	"github.com/diogo/promptin/internal/render"
)

var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)
)

type askOptions struct {
	system  string
	preset  string
	history string
	save    bool
	raw     bool
	copy    bool
	output  string
	file    string
}

var askFlags askOptions

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send a single message and print the reply",
	Long: `Send one message and print the assistant reply.

The message comes from the argument, from --file, or from stdin. With
--history the turns of an exported chat.txt are sent as prior context, and
--save appends the new exchange to that file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd, args, askFlags)
	},
}

func init() {
	askCmd.Flags().StringVarP(&askFlags.system, "system", "s", "", "System prompt")
	askCmd.Flags().StringVarP(&askFlags.preset, "preset", "p", "", "Use a saved system prompt by name")
	askCmd.Flags().StringVar(&askFlags.history, "history", "", "Transcript file (chat.txt) to use as prior turns")
	askCmd.Flags().BoolVar(&askFlags.save, "save", false, "Append the exchange to the --history file")
	askCmd.Flags().BoolVar(&askFlags.raw, "raw", false, "Print only the reply text")
	askCmd.Flags().BoolVarP(&askFlags.copy, "copy", "c", false, "Copy the reply to the clipboard")
	askCmd.Flags().StringVarP(&askFlags.output, "output", "o", "", "Write the reply to a file")
	askCmd.Flags().StringVarP(&askFlags.file, "file", "f", "", "Read the message from a file")
	_ = askCmd.RegisterFlagCompletionFunc("preset", completePresets)
}

// readMessage picks the message from args, --file or stdin, in that order
func readMessage(args []string, file string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), nil
	}
	if deps.Stdin != nil && stdinHasData(deps) {
		data, err := io.ReadAll(deps.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	}
	return "", fmt.Errorf("no message given: pass it as an argument, with --file, or on stdin")
}

func loadHistory(path string) ([]models.Turn, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return conversation.ParseTranscript(string(data)), nil
}

func askLogger(cfg config.Config, w io.Writer) *slog.Logger {
	if !cfg.Verbose {
		return logging.Discard()
	}
	logger, _, err := logging.New(logging.Options{Verbose: true, Writer: w})
	if err != nil {
		return logging.Discard()
	}
	return logger
}

func runAsk(cmd *cobra.Command, args []string, opts askOptions) error {
	if opts.save && opts.history == "" {
		return fmt.Errorf("--save requires --history")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	message, err := readMessage(args, opts.file)
	if err != nil {
		return err
	}

	system, err := resolveSystemPrompt(cfg, opts.system, opts.preset)
	if err != nil {
		return err
	}

	history, err := loadHistory(opts.history)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	gateway, closeFn, err := newGateway(cfg, askLogger(cfg, stderr))
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var spin *spinner
	if !opts.raw && deps.StdoutIsTerminal != nil && deps.StdoutIsTerminal() {
		spin = newSpinner(stderr, "Waiting for "+cfg.Model)
		spin.start()
	}

	content, err := gateway.RequestCompletion(ctx, api.Snapshot{
		SystemPrompt: system,
		History:      history,
		Input:        message,
	})
	if err != nil {
		if spin != nil {
			spin.stopWithError()
		}
		return err
	}
	if spin != nil {
		spin.stopWithSuccess("Reply received")
	}

	reply := ""
	if content != nil {
		reply = *content
	}

	if opts.save {
		if err := appendExchange(opts.history, message, reply); err != nil {
			return err
		}
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(reply), 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Fprintf(stderr, "Reply written to %s\n", opts.output)
	}

	if opts.copy || cfg.CopyToClipboard {
		sink := export.ClipboardSink{}
		if _, err := sink.Write(ctx, export.PlainDocument(reply)); err != nil {
			fmt.Fprintln(stderr, formatErrorMessage(err, "Clipboard"))
		}
	}

	if opts.output != "" {
		return nil
	}
	return printReply(cmd.OutOrStdout(), cfg, reply, opts.raw)
}

// appendExchange adds the user and assistant turns to a transcript file
func appendExchange(path, message, reply string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()

	text := conversation.RenderTranscript([]models.Turn{
		models.UserTurn(message),
		models.AssistantTurn(reply),
	})
	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

func printReply(w io.Writer, cfg config.Config, reply string, raw bool) error {
	opts := render.OptionsFromConfig(cfg)
	if raw || opts.Plain() || deps.StdoutIsTerminal == nil || !deps.StdoutIsTerminal() {
		_, err := fmt.Fprintln(w, reply)
		return err
	}

	width := deps.TerminalWidth() - 4
	if width < 20 {
		width = 20
	}
	body := render.Reply(reply, opts.WithWidth(width-4))

	fmt.Fprintln(w, assistantLabelStyle.Render(models.SpeakerAssistant.String()))
	_, err := fmt.Fprintln(w, assistantBubbleStyle.Width(width).Render(body))
	return err
}
