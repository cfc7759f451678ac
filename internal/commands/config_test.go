package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/promptin/internal/config"
)

func TestConfigShow_RedactsKey(t *testing.T) {
	setupCommandTest(t, nil)
	t.Setenv(config.EnvAPIKey, "sk-test-1234567890abcd")
	cmd, stdout, _ := newTestCommand()

	if err := configShowCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("config show error = %v", err)
	}

	if strings.Contains(stdout.String(), "1234567890") {
		t.Errorf("key leaked: %s", stdout.String())
	}

	var shown config.Config
	if err := json.Unmarshal(stdout.Bytes(), &shown); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if shown.APIKey != "sk-...abcd" {
		t.Errorf("APIKey = %q, want sk-...abcd", shown.APIKey)
	}
}

func TestConfigPath_UsesFlag(t *testing.T) {
	dir := setupCommandTest(t, nil)
	cmd, stdout, _ := newTestCommand()

	if err := configPathCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("config path error = %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != filepath.Join(dir, "config.toml") {
		t.Errorf("path = %q", got)
	}
}

func TestConfigInit_WritesAndRefusesOverwrite(t *testing.T) {
	dir := setupCommandTest(t, nil)
	configInitForce = false
	t.Cleanup(func() { configInitForce = false })
	cmd, _, _ := newTestCommand()

	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("config init error = %v", err)
	}

	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	cfg, err := config.LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Model != config.DefaultConfig().Model {
		t.Errorf("Model = %q", cfg.Model)
	}

	if err := configInitCmd.RunE(cmd, nil); err == nil {
		t.Error("second init without --force should fail")
	}

	configInitForce = true
	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Errorf("init with --force error = %v", err)
	}
}

func TestConfigInit_DefaultLocation(t *testing.T) {
	home := setupCommandTest(t, nil)
	configFlag = ""
	configInitForce = false
	cmd, stdout, _ := newTestCommand()

	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("config init error = %v", err)
	}

	path := filepath.Join(home, ".promptin", "config.toml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(stdout.String(), path) {
		t.Errorf("output = %q, want %s", stdout.String(), path)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Model != config.DefaultConfig().Model {
		t.Errorf("Model = %q", cfg.Model)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := setupCommandTest(t, nil)
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("model = \"gpt-4\"\nbase_url = \"http://file\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Model != "gpt-4" || cfg.BaseURL != "http://file" {
		t.Errorf("file values not applied: %+v", cfg)
	}

	modelFlag = "gpt-4o"
	baseURLFlag = "http://flag"
	verboseFlag = true
	cfg, err = loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Model != "gpt-4o" || cfg.BaseURL != "http://flag" || !cfg.Verbose {
		t.Errorf("flags not applied: %+v", cfg)
	}
}

func TestResolveSystemPrompt(t *testing.T) {
	cfg := config.DefaultConfig()

	got, err := resolveSystemPrompt(cfg, "explicit", "terse")
	if err != nil || got != "explicit" {
		t.Errorf("explicit prompt = %q, %v", got, err)
	}

	got, err = resolveSystemPrompt(cfg, "", "")
	if err != nil || got != "" {
		t.Errorf("no prompt = %q, %v", got, err)
	}

	if _, err := resolveSystemPrompt(cfg, "", "missing"); err == nil {
		t.Error("unknown preset should fail")
	}
}
