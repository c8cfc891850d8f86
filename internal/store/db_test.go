package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "runs.db")))
	t.Cleanup(func() { Close() })
}

func TestRunLifecycle(t *testing.T) {
	openTestDB(t)

	require.NoError(t, SaveRun("run-1", "export.json"))
	require.NoError(t, SaveRunCounts("run-1", 120, 840))
	require.NoError(t, UpdateRunStatus("run-1", "completed"))

	runs, err := ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "export.json", runs[0].SourceFile)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, 120, runs[0].Purchases)
	assert.Equal(t, 840, runs[0].Products)
}

func TestSaveRunError(t *testing.T) {
	openTestDB(t)

	require.NoError(t, SaveRun("run-2", "export.json"))
	require.NoError(t, SaveRunError("run-2", errors.New("boom")))
	require.NoError(t, UpdateRunStatus("run-2", "failed"))

	var message string
	err := db.QueryRow(`SELECT error_message FROM run_errors WHERE run_id = ?`, "run-2").Scan(&message)
	require.NoError(t, err)
	assert.Equal(t, "boom", message)

	// nil errors are a no-op
	assert.NoError(t, SaveRunError("run-2", nil))
}

func TestListRunsEmpty(t *testing.T) {
	openTestDB(t)

	runs, err := ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}
