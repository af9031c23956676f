package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
}

func TestDropStaleLogs(t *testing.T) {
	dir := t.TempDir()

	touch(t, dir, "smile_log_fit.success.log")
	touch(t, dir, "smile_log_fit.failure.log")
	touch(t, dir, "smile_log_predict.success.log") // different base
	touch(t, dir, "unrelated.txt")

	n, err := DropStaleLogs(dir, "smile_log_fit")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The failure log and the other base's success log survive.
	assert.FileExists(t, filepath.Join(dir, "smile_log_fit.failure.log"))
	assert.FileExists(t, filepath.Join(dir, "smile_log_predict.success.log"))
	assert.NoFileExists(t, filepath.Join(dir, "smile_log_fit.success.log"))
}

func TestDropStaleLogsIdempotent(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "smile_log_fit.success.log")

	n, err := DropStaleLogs(dir, "smile_log_fit")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Second pass with nothing new deletes nothing.
	n, err = DropStaleLogs(dir, "smile_log_fit")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDropFailureLogs(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "smile_log_fit.success.log")
	touch(t, dir, "smile_log_fit.failure.log")

	n, err := DropFailureLogs(dir, "smile_log_fit")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, filepath.Join(dir, "smile_log_fit.success.log"))
}

func TestDropLogsEmptyBase(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "anything.success.log")

	// An empty base must never match everything.
	n, err := DropStaleLogs(dir, "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.FileExists(t, filepath.Join(dir, "anything.success.log"))
}
