package commands

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/diogo/promptin/internal/api"
	"github.com/diogo/promptin/internal/config"
)

// setupCommandTest isolates HOME, the environment and the package globals
func setupCommandTest(t *testing.T, gateway api.CompletionGateway) string {
	t.Helper()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	for _, key := range []string{config.EnvModel, config.EnvBaseURL, config.EnvAPIKey, config.EnvOpenAIKey, config.EnvExportDir, config.EnvGlamour} {
		t.Setenv(key, "")
	}

	oldDeps := deps
	oldModel, oldBase, oldConfig, oldVerbose := modelFlag, baseURLFlag, configFlag, verboseFlag
	t.Cleanup(func() {
		deps = oldDeps
		modelFlag, baseURLFlag, configFlag, verboseFlag = oldModel, oldBase, oldConfig, oldVerbose
	})

	deps = NewDependencies()
	deps.Gateway = gateway
	deps.StdinIsTerminal = func() bool { return true }
	deps.StdoutIsTerminal = func() bool { return false }
	deps.TerminalWidth = func() int { return 80 }

	modelFlag, baseURLFlag, verboseFlag = "", "", false
	configFlag = filepath.Join(tmpDir, "config.toml")

	return tmpDir
}

func newTestCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	return cmd, &stdout, &stderr
}
