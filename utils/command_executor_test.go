package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandExecutor_CapturesOutputInDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o644))

	res, err := NewCommandExecutor("sh").ExecuteCommand(context.Background(), dir, "ls")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Output, "marker.txt")
}

func TestCommandExecutor_NonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	res, err := NewCommandExecutor("sh").ExecuteCommand(context.Background(), t.TempDir(), "echo oops; exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Output, "oops")
}

func TestCommandExecutor_RejectsDangerousAndEmpty(t *testing.T) {
	ce := NewCommandExecutor("")
	_, err := ce.ExecuteCommand(context.Background(), t.TempDir(), "rm -rf / --no-preserve-root")
	assert.ErrorContains(t, err, "dangerous")

	_, err = ce.ExecuteCommand(context.Background(), t.TempDir(), "   ")
	assert.Error(t, err)
}

func TestParseCommitLines(t *testing.T) {
	commits := parseCommitLines("abc1234567|Ann|2024-01-02 10:00:00 +0000|Fix bug\n\nbroken line\n")
	require.Len(t, commits, 1)
	assert.Equal(t, "Ann", commits[0].Author)
	assert.Equal(t, "Fix bug", commits[0].Subject)

	out := FormatHistory("a.js", commits)
	assert.Contains(t, out, "- abc1234 Fix bug")
	assert.Equal(t, "No history found for b.js", FormatHistory("b.js", nil))
}
