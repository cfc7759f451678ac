package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/diogo/promptin/internal/chat"
	"github.com/diogo/promptin/internal/logging"
	"github.com/diogo/promptin/internal/server"
)

var (
	serveAddrFlag   string
	serveSystemFlag string
	servePresetFlag string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve one chat session over HTTP",
	Long: `Serve a single chat session as a JSON API.

Routes:
  GET  /api/state        conversation state
  POST /api/prompt       set the system prompt {"prompt": "..."}
  POST /api/send         send a message {"text": "..."}
  POST /api/clear        clear the chat
  GET  /api/transcript   plain-text transcript
  GET  /api/export       download chat.txt (?format=markdown|json)
  GET  /health           liveness probe`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", ":8787", "Listen address")
	serveCmd.Flags().StringVarP(&serveSystemFlag, "system", "s", "", "Initial system prompt")
	serveCmd.Flags().StringVarP(&servePresetFlag, "preset", "p", "", "Use a saved system prompt by name")
	_ = serveCmd.RegisterFlagCompletionFunc("preset", completePresets)
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prompt, err := resolveSystemPrompt(cfg, serveSystemFlag, servePresetFlag)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{Verbose: cfg.Verbose, Writer: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer closeLog()

	gateway, closeFn, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	ctrl := chat.New(gateway, chat.WithLogger(logger), chat.WithTimeout(cfg.Timeout()))
	if prompt != "" {
		if err := ctrl.SetSystemPrompt(prompt); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, serveAddrFlag, server.NewHandler(ctrl, logger))
}
