package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/latch/internal/journal"
)

const passingScenario = `
name: resolves
steps:
  - submit: {surface: "1:1", refs: ["2:1"]}
  - resolve: "2:1"
expect:
  activations:
    - {surface: "2:1"}
    - {surface: "1:1"}
  idle: true
`

const failingScenario = `
name: mismatched
steps:
  - resolve: "1:1"
expect:
  activations: []
`

func writeScenario(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRun_PassingScenario(t *testing.T) {
	path := writeScenario(t, passingScenario)

	out, _, err := executeRoot(t, "run", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Scenario: resolves")
	assert.Contains(t, out, "ACTIVATE 1:1")
	assert.Contains(t, out, "PASS")
	assert.NotContains(t, out, "Session:")
}

func TestRun_FailingScenarioExitCode(t *testing.T) {
	path := writeScenario(t, failingScenario)

	out, _, err := executeRoot(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "expected 0 activations")
}

func TestRun_MissingScenarioFile(t *testing.T) {
	_, _, err := executeRoot(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_JSONFormat(t *testing.T) {
	path := writeScenario(t, passingScenario)

	out, _, err := executeRoot(t, "--format", "json", "run", path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "resolves", data["scenario"])
	assert.Equal(t, true, data["pass"])
}

func TestRun_JournalsWhenDBSet(t *testing.T) {
	path := writeScenario(t, passingScenario)
	dbPath := filepath.Join(t.TempDir(), "latch.db")

	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	token := journal.NewSessionToken()
	opts := &RunOptions{
		RootOptions:    &RootOptions{Format: "text"},
		Database:       dbPath,
		TokenGenerator: func() string { return token },
	}
	require.NoError(t, runScenario(opts, path, cmd))
	assert.Contains(t, out.String(), "Session: "+token)

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	session, err := j.GetSession(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "resolves", session.Scenario)

	events, err := j.SessionEvents(context.Background(), token)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, journal.KindSubmit, events[0].Kind)
}

func TestRun_ConfigSuppliesDefaultThreshold(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(`
name: deadline
steps:
  - submit: {surface: "1:1", refs: ["2:1"]}
  - tick: 2
expect:
  activations:
    - {surface: "1:1", forced: true}
`), 0o644))

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("deadline_threshold: 2\n"), 0o644))

	out, _, err := executeRoot(t, "run", "--config", configPath, scenarioPath)
	require.NoError(t, err, "two ticks must hit the configured threshold")
	assert.Contains(t, out, "1:1 (forced)")
	assert.Contains(t, out, "PASS")
}

func TestRun_BadConfigExitCode(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log_level: loud\n"), 0o644))
	scenarioPath := writeScenario(t, passingScenario)

	_, _, err := executeRoot(t, "run", "--config", configPath, scenarioPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
