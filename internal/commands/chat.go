package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/diogo/promptin/internal/chat"
	"github.com/diogo/promptin/internal/config"
	"github.com/diogo/promptin/internal/export"
	"github.com/diogo/promptin/internal/logging"
	"github.com/diogo/promptin/internal/render"
	"github.com/diogo/promptin/internal/tui"
)

var (
	chatSystemFlag string
	chatPresetFlag string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session.

The system prompt can be edited with Tab until the first reply arrives.
Ctrl+L clears the chat, Ctrl+E saves chat.txt to the export directory and
Ctrl+Y copies it to the clipboard. Esc or Ctrl+C ends the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.ErrOrStderr(), chatSystemFlag, chatPresetFlag)
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatSystemFlag, "system", "s", "", "Initial system prompt")
	chatCmd.Flags().StringVarP(&chatPresetFlag, "preset", "p", "", "Use a saved system prompt by name")
	_ = chatCmd.RegisterFlagCompletionFunc("preset", completePresets)
}

func runChat(stderr io.Writer, system, preset string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prompt, err := resolveSystemPrompt(cfg, system, preset)
	if err != nil {
		return err
	}

	// the screen owns stdout, so records go to the log file
	logger, closeLog, err := logging.New(logging.Options{File: cfg.LogFile, Verbose: cfg.Verbose})
	if err != nil {
		fmt.Fprintf(stderr, "Warning: logging disabled: %v\n", err)
		logger, closeLog = logging.Discard(), func() error { return nil }
	}
	defer closeLog()

	gateway, closeFn, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	ctrl := chat.New(gateway, chat.WithLogger(logger), chat.WithTimeout(cfg.Timeout()))
	defer ctrl.Close()

	if prompt != "" {
		if err := ctrl.SetSystemPrompt(prompt); err != nil {
			return err
		}
	}

	exportDir, err := config.GetExportDir(cfg)
	if err != nil {
		return err
	}

	return deps.RunChat(ctrl, tui.Options{
		ModelName:     cfg.Model,
		SystemPrompt:  prompt,
		Render:        render.OptionsFromConfig(cfg),
		FileSink:      export.FileSink{Dir: exportDir},
		ClipboardSink: export.ClipboardSink{},
	})
}
