package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	content := fmt.Sprintf(`[paths]
work_dir = %q
output_dir = %q
state_dir = %q
log_dir = %q

[logging]
format = "console"
level = "error"
`,
		filepath.Join(root, "work"),
		filepath.Join(root, "output"),
		filepath.Join(root, "state"),
		filepath.Join(root, "logs"),
	)
	path := filepath.Join(root, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestQueueStatusEmptyQueue(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", configPath, "queue", "status")
	require.NoError(t, err)
	require.Contains(t, out, "Queue is empty")
}

func TestQueueListUnknownStatusRejected(t *testing.T) {
	configPath := writeTestConfig(t)

	_, err := runCommand(t, "--config", configPath, "queue", "list", "--status", "bogus")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown status")
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	require.NoError(t, err)
	require.Contains(t, out, "Wrote sample configuration")

	info, err := os.Stat(target)
	require.NoError(t, err)
	require.Positive(t, info.Size())

	_, err = runCommand(t, "config", "init", "--path", target)
	require.Error(t, err)
}

func TestConfigValidateWithExplicitPath(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", configPath, "config", "validate")
	require.NoError(t, err)
	require.Contains(t, out, "Configuration valid")
}

func TestExperimentsListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", configPath, "experiments", "list", "7")
	require.NoError(t, err)
	require.Contains(t, out, "No variations recorded")
}

func TestPublishRejectsUnknownItem(t *testing.T) {
	configPath := writeTestConfig(t)

	_, err := runCommand(t, "--config", configPath, "publish", "99")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}
