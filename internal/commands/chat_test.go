package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/promptin/internal/api"
	"github.com/diogo/promptin/internal/chat"
	"github.com/diogo/promptin/internal/config"
	"github.com/diogo/promptin/internal/export"
	"github.com/diogo/promptin/internal/tui"
)

func TestRunChat_WiresControllerAndSinks(t *testing.T) {
	gw := api.NewMockGateway("ok")
	dir := setupCommandTest(t, gw)
	t.Setenv(config.EnvExportDir, dir)

	var gotCtrl *chat.Controller
	var gotOpts tui.Options
	deps.RunChat = func(ctrl *chat.Controller, opts tui.Options) error {
		gotCtrl, gotOpts = ctrl, opts
		return nil
	}

	if err := runChat(io.Discard, "Be terse.", ""); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}

	if gotCtrl == nil {
		t.Fatal("RunChat was not called")
	}
	prompt, set := gotCtrl.Conversation().SystemPrompt()
	if !set || prompt != "Be terse." {
		t.Errorf("system prompt = %q (set=%v)", prompt, set)
	}
	if gotOpts.SystemPrompt != "Be terse." {
		t.Errorf("opts.SystemPrompt = %q", gotOpts.SystemPrompt)
	}

	sink, ok := gotOpts.FileSink.(export.FileSink)
	if !ok || sink.Dir != dir {
		t.Errorf("FileSink = %#v, want dir %s", gotOpts.FileSink, dir)
	}
	if _, ok := gotOpts.ClipboardSink.(export.ClipboardSink); !ok {
		t.Errorf("ClipboardSink = %#v", gotOpts.ClipboardSink)
	}
}

func TestRunChat_NoPromptLeavesUnset(t *testing.T) {
	setupCommandTest(t, api.NewMockGateway("ok"))

	var gotCtrl *chat.Controller
	deps.RunChat = func(ctrl *chat.Controller, opts tui.Options) error {
		gotCtrl = ctrl
		return nil
	}

	if err := runChat(io.Discard, "", ""); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}
	if _, set := gotCtrl.Conversation().SystemPrompt(); set {
		t.Error("system prompt should stay unset")
	}
}

func TestRunChat_NoKeyFails(t *testing.T) {
	setupCommandTest(t, nil)
	deps.RunChat = func(ctrl *chat.Controller, opts tui.Options) error {
		t.Error("RunChat should not be called")
		return nil
	}

	if err := runChat(io.Discard, "", ""); err == nil {
		t.Error("expected error without an API key")
	}
}

func TestRunChat_WarnsWhenLogFileUnusable(t *testing.T) {
	dir := setupCommandTest(t, api.NewMockGateway("ok"))

	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfgData := "log_file = \"" + filepath.Join(blocker, "promptin.log") + "\"\n"
	if err := os.WriteFile(configFlag, []byte(cfgData), 0o600); err != nil {
		t.Fatal(err)
	}

	called := false
	deps.RunChat = func(ctrl *chat.Controller, opts tui.Options) error {
		called = true
		return nil
	}

	var stderr bytes.Buffer
	if err := runChat(&stderr, "", ""); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}
	if !called {
		t.Error("chat should still start without a log file")
	}
	if !strings.Contains(stderr.String(), "logging disabled") {
		t.Errorf("stderr = %q, want a logging warning", stderr.String())
	}
}
