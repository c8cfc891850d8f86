package main

import (
	"errors"
	"path/filepath"
	"testing"

	"clubcard-pipeline/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFailure(t *testing.T) {
	require.NoError(t, store.InitDB(filepath.Join(t.TempDir(), "runs.db")))
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SaveRun("run-1", "export.json"))
	recordFailure("run-1", errors.New("boom"))

	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status)
}

func TestRecordFailureWithoutOpenDatabase(t *testing.T) {
	require.NoError(t, store.InitDB(filepath.Join(t.TempDir(), "runs.db")))
	require.NoError(t, store.Close())

	// bookkeeping problems must not panic; the run error still reaches
	// the caller through the normal return path
	assert.NotPanics(t, func() { recordFailure("run-x", errors.New("boom")) })
}
