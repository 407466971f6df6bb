package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/latch/internal/journal"
	"github.com/roach88/latch/internal/scenario"
)

// seedJournal runs a scenario and persists it, returning the journal
// path and session token.
func seedJournal(t *testing.T, doc string) (string, string) {
	t.Helper()

	s, err := scenario.Parse([]byte(doc))
	require.NoError(t, err)
	result, err := scenario.Run(s)
	require.NoError(t, err)

	dbPath := filepath.Join(t.TempDir(), "latch.db")
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	token := journal.NewSessionToken()
	require.NoError(t, scenario.Record(context.Background(), j, token, s, result))
	return dbPath, token
}

const tracedScenario = `
name: traced
threshold: 2
steps:
  - submit: {surface: "1:1", refs: ["2:1"]}
  - tick: 2
`

func TestTrace_ListSessions(t *testing.T) {
	dbPath, token := seedJournal(t, tracedScenario)

	out, _, err := executeRoot(t, "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, token)
	assert.Contains(t, out, "traced")
	assert.Contains(t, out, "threshold=2")
}

func TestTrace_ListEmptyJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "latch.db")
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	out, _, err := executeRoot(t, "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions")
}

func TestTrace_ShowSession(t *testing.T) {
	dbPath, token := seedJournal(t, tracedScenario)

	out, _, err := executeRoot(t, "trace", "--db", dbPath, "--session", token)
	require.NoError(t, err)

	assert.Contains(t, out, "Session: "+token)
	assert.Contains(t, out, "Scenario: traced (threshold 2)")
	assert.Contains(t, out, "SUBMIT 1:1")
	assert.Contains(t, out, "BLOCKED 1:1 waiting-on 2:1")
	assert.Contains(t, out, "ACTIVATE 1:1")
	assert.Contains(t, out, "forced")
	assert.Contains(t, out, "Late: 1:1")
	assert.Contains(t, out, "Ticks:        2")
}

func TestTrace_KindFilter(t *testing.T) {
	dbPath, token := seedJournal(t, tracedScenario)

	out, _, err := executeRoot(t, "trace", "--db", dbPath, "--session", token, "--kind", "tick")
	require.NoError(t, err)
	assert.Contains(t, out, "TICK")
	assert.NotContains(t, out, "SUBMIT")
	// Stats always cover the full session, not the filtered view.
	assert.Contains(t, out, "Submissions:  1")
}

func TestTrace_JSONOutput(t *testing.T) {
	dbPath, token := seedJournal(t, tracedScenario)

	out, _, err := executeRoot(t, "--format", "json", "trace", "--db", dbPath, "--session", token)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, token, data["token"])
	assert.Equal(t, "traced", data["scenario"])

	stats, ok := data["stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), stats["forced_late"])
}

func TestTrace_UnknownSession(t *testing.T) {
	dbPath, _ := seedJournal(t, tracedScenario)

	_, _, err := executeRoot(t, "trace", "--db", dbPath, "--session", "no-such-token")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorContains(t, err, "session not found")
}
