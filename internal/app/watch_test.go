package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func watchJob(t *testing.T) (string, *FileWatcher, chan struct{}) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

	w := NewFileWatcher(path, 10*time.Millisecond)
	require.NotNil(t, w)
	changed := make(chan struct{}, 1)
	w.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	return path, w, changed
}

func waitChange(t *testing.T, changed <-chan struct{}) {
	t.Helper()
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestFileWatcherReportsRewrite(t *testing.T) {
	path, w, changed := watchJob(t)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("version: 1\nname: plaza\n"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))
	waitChange(t, changed)
}

func TestFileWatcherReportsSizeChangeWithSameModTime(t *testing.T) {
	path, w, changed := watchJob(t)
	info, err := os.Stat(path)
	require.NoError(t, err)

	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("version: 1\nname: old town\n"), 0o644))
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))
	waitChange(t, changed)
}

func TestFileWatcherStopEndsLoop(t *testing.T) {
	path, w, changed := watchJob(t)
	w.Start()
	w.Stop()
	w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("version: 2\nname: moved\n"), 0o644))
	select {
	case <-changed:
		t.Fatal("change reported after Stop")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, path, w.Path())
}

func TestFileWatcherMissingFile(t *testing.T) {
	assert.Nil(t, NewFileWatcher(filepath.Join(t.TempDir(), "missing"), time.Second))
}
