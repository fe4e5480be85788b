package paths

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewLayout(t *testing.T) {
	root := t.TempDir()
	l, err := New(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "notes"), l.Active)
	assert.Equal(t, filepath.Join(root, "recycle_bin"), l.Recycle)
	assert.Equal(t, filepath.Join(root, "logs"), l.Logs)
	assert.Equal(t, filepath.Join(root, "logs", "operations.log"), l.LogFile())
}

func TestEnsureCreatesDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "deep", "root")
	l, err := New(root)
	require.NoError(t, err)

	require.NoError(t, l.Ensure(discardLogger()))
	for _, dir := range l.Dirs() {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}

	// Second call is a no-op.
	require.NoError(t, l.Ensure(discardLogger()))
}

func TestEnsureFailureIsReportedNotFatal(t *testing.T) {
	root := t.TempDir()
	l, err := New(root)
	require.NoError(t, err)

	// A regular file where the recycle directory should be.
	require.NoError(t, os.WriteFile(l.Recycle, []byte("blocker"), 0o644))

	err = l.Ensure(discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recycle_bin")

	// The other directories were still created.
	_, err = os.Stat(l.Active)
	assert.NoError(t, err)
	_, err = os.Stat(l.Logs)
	assert.NoError(t, err)
}

func TestResolveOverride(t *testing.T) {
	root := t.TempDir()
	l, err := Resolve(root)
	require.NoError(t, err)
	assert.Equal(t, root, l.Root)
}
