// Package commands provides the CLI commands for promptin.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/promptin/internal/api"
	"github.com/diogo/promptin/internal/config"
	"github.com/diogo/promptin/internal/models"
)

var (
	// Global flags
	modelFlag   string
	baseURLFlag string
	configFlag  string
	verboseFlag bool

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// deps is swapped by tests
var deps = NewDependencies()

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "promptin [message]",
	Short: "Chat with an OpenAI-compatible model from the terminal",
	Long: `promptin is a minimal chat client for OpenAI-compatible chat completion
endpoints. Each conversation has one system prompt, set before the first
reply, and a transcript that can be exported as chat.txt.

Examples:
  promptin chat                         Start interactive chat
  promptin chat --preset terse          Chat with a saved system prompt
  promptin "What is Go?"                Send a single message
  promptin ask -f prompt.md             Read the message from a file
  cat prompt.md | promptin ask          Read the message from stdin
  promptin ask --history chat.txt "Go on"
  promptin serve --addr :8787           Serve the chat as a JSON API
  promptin config init                  Write a default config file`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintf(cmd.OutOrStdout(), "promptin %s (built %s)\n", Version, BuildTime)
			return nil
		}

		if len(args) == 0 && !stdinHasData(deps) {
			return cmd.Help()
		}
		return runAsk(cmd, args, askOptions{})
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Error"))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Model to use ("+strings.Join(config.AvailableModels(), ", ")+", or any endpoint model id)")
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "Endpoint base URL (default https://api.openai.com/v1)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default ~/.promptin/config.toml or config.json)")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Log request details")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")
	_ = rootCmd.RegisterFlagCompletionFunc("model", completeModels)

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig reads the config file and applies the global flags on top
func loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if configFlag == "" {
		cfg, err = config.LoadConfig()
	} else {
		cfg, err = config.LoadConfigFrom(configFlag)
	}
	if err != nil {
		return cfg, err
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if baseURLFlag != "" {
		cfg.BaseURL = baseURLFlag
	}
	if verboseFlag {
		cfg.Verbose = true
	}
	return cfg, nil
}

// newGateway builds the completion gateway for cfg
func newGateway(cfg config.Config, logger *slog.Logger) (api.CompletionGateway, func(), error) {
	if deps.Gateway != nil {
		return deps.Gateway, func() {}, nil
	}

	style, err := api.ParseMessageStyle(cfg.MessageStyle)
	if err != nil {
		return nil, nil, err
	}

	client, err := api.NewClient(
		api.WithModel(models.ModelFromName(cfg.Model)),
		api.WithBaseURL(cfg.BaseURL),
		api.WithAPIKey(cfg.APIKey),
		api.WithTemperature(cfg.Temperature),
		api.WithHistoryLimit(cfg.HistoryLimit),
		api.WithMessageStyle(style),
		api.WithTimeout(cfg.Timeout()),
		api.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, client.Close, nil
}

func completeModels(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return config.AvailableModels(), cobra.ShellCompDirectiveNoFileComp
}

// completePresets lists built-in and configured preset names
func completePresets(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	return cfg.PresetNames(), cobra.ShellCompDirectiveNoFileComp
}

// resolveSystemPrompt picks --system over --preset
func resolveSystemPrompt(cfg config.Config, system, preset string) (string, error) {
	if system != "" {
		return system, nil
	}
	if preset == "" {
		return "", nil
	}
	return cfg.Preset(preset)
}
