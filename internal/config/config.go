// Package config handles configuration loading for promptin.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/diogo/promptin/internal/models"
)

// Environment variables that override file values
const (
	EnvModel     = "PROMPTIN_MODEL"
	EnvBaseURL   = "PROMPTIN_BASE_URL"
	EnvAPIKey    = "PROMPTIN_API_KEY"
	EnvOpenAIKey = "OPENAI_API_KEY"
	EnvExportDir = "PROMPTIN_EXPORT_DIR"
	EnvGlamour   = "GLAMOUR_STYLE"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style" toml:"style"`                           // "dark", "light", "notty" or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji" toml:"enable_emoji"`             // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines" toml:"preserve_newlines"`   // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap" toml:"table_wrap"`                 // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links" toml:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	Model   string `json:"model" toml:"model"`
	BaseURL string `json:"base_url" toml:"base_url"`
	APIKey  string `json:"api_key,omitempty" toml:"api_key"`
	// Temperature is sent with every request. 0 keeps replies reproducible.
	Temperature    float64 `json:"temperature" toml:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds" toml:"timeout_seconds"`
	// HistoryLimit caps how many recent turns are re-sent. 0 means all.
	HistoryLimit int `json:"history_limit" toml:"history_limit"`
	// MessageStyle is "folded" (single user message) or "turns".
	MessageStyle    string            `json:"message_style" toml:"message_style"`
	ExportDir       string            `json:"export_dir,omitempty" toml:"export_dir"`
	CopyToClipboard bool              `json:"copy_to_clipboard" toml:"copy_to_clipboard"`
	Verbose         bool              `json:"verbose" toml:"verbose"`
	LogFile         string            `json:"log_file,omitempty" toml:"log_file"`
	Presets         map[string]string `json:"presets,omitempty" toml:"presets"`
	Markdown        MarkdownConfig    `json:"markdown" toml:"markdown"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		Model:           "gpt-3.5-turbo",
		BaseURL:         "https://api.openai.com/v1",
		Temperature:     0,
		TimeoutSeconds:  120,
		HistoryLimit:    0,
		MessageStyle:    "folded",
		ExportDir:       filepath.Join(homeDir, ".promptin", "exports"),
		CopyToClipboard: false,
		Verbose:         false,
		LogFile:         filepath.Join(homeDir, ".promptin", "promptin.log"),
		Presets:         DefaultPresets(),
		Markdown:        DefaultMarkdownConfig(),
	}
}

// Timeout returns the request timeout as a duration
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".promptin"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// config.json may carry the API key
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path new config files are written to
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// ResolveConfigPath picks the file LoadConfig would read: config.toml when
// present, config.json otherwise
func ResolveConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	tomlPath := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetExportDir returns the export directory from config, creating it if necessary
func GetExportDir(cfg Config) (string, error) {
	dir := cfg.ExportDir
	if dir == "" {
		configDir, err := GetConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(configDir, "exports")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	return dir, nil
}

// LoadConfig loads the configuration from the default location
func LoadConfig() (Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom loads the configuration from path, or from the default
// location when path is empty. A missing file yields the defaults. Values
// from a .env file in the working directory and from the environment are
// applied last.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return cfg, err
		}
		path = resolved
	}

	if err := decodeFile(path, &cfg); err != nil {
		return DefaultConfig(), err
	}
	if err := validatePresets(cfg.Presets); err != nil {
		return DefaultConfig(), fmt.Errorf("invalid config file %s: %w", path, err)
	}

	if err := LoadDotEnv(".env"); err != nil {
		return cfg, err
	}
	ApplyEnv(&cfg, os.Getenv)

	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		return nil
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left alone and a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with values from the environment
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv(EnvModel); v != "" {
		cfg.Model = v
	}
	if v := getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := getenv(EnvOpenAIKey); v != "" {
		cfg.APIKey = v
	}
	// the app-specific key wins over the generic one
	if v := getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := getenv(EnvExportDir); v != "" {
		cfg.ExportDir = v
	}
	if v := getenv(EnvGlamour); v != "" {
		cfg.Markdown.Style = v
	}
}

// SaveConfig saves the configuration to the default TOML file
func SaveConfig(cfg Config) error {
	if _, err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveConfigTo(path, cfg)
}

// SaveConfigTo writes the configuration to path. The format follows the
// file extension.
func SaveConfigTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = []byte(sb.String())
	} else {
		encoded, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = encoded
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy safe for display
func (c Config) Redacted() Config {
	out := c
	if len(out.APIKey) > 8 {
		out.APIKey = out.APIKey[:3] + "..." + out.APIKey[len(out.APIKey)-4:]
	} else if out.APIKey != "" {
		out.APIKey = "***"
	}
	return out
}

// AvailableModels returns the model names offered in --model completion
func AvailableModels() []string {
	known := models.AllModels()
	names := make([]string, 0, len(known))
	for _, m := range known {
		names = append(names, m.Name)
	}
	return names
}
