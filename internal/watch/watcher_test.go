package watch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherFsnotify(t *testing.T) {
	tempDir := t.TempDir()

	w, err := NewWatcher(func(name string) bool { return strings.HasPrefix(name, "#") })
	require.NoError(t, err, "New watcher creation failed")

	require.NoError(t, w.AddDirectory(tempDir), "Failed to add directory to watcher")
	assert.Equal(t, []string{tempDir}, w.GetDirectories())

	require.NoError(t, w.Start(), "Failed to start watcher")
	defer w.Stop()
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start(), "second start should fail")

	evChan := w.FileChannel()

	// Allow a brief moment for fsnotify to initialize watches
	time.Sleep(100 * time.Millisecond)

	// Untagged names are filtered out
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "plain.txt"), nil, 0644))
	select {
	case event := <-evChan:
		t.Fatalf("unexpected event for %s", event.Path)
	case <-time.After(300 * time.Millisecond):
	}

	testFilePath := filepath.Join(tempDir, "#misc=testfile.txt")
	require.NoError(t, os.WriteFile(testFilePath, []byte("hello"), 0644))

	select {
	case event, ok := <-evChan:
		require.True(t, ok, "Event channel closed unexpectedly")
		assert.Equal(t, testFilePath, event.Path)
		assert.True(t, event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write))
		require.NotNil(t, event.Info)
		assert.Equal(t, filepath.Base(testFilePath), event.Info.Name())
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for event")
	}

	w.Stop()
	assert.False(t, w.IsRunning())

	// Drain whatever was buffered before the close
	for range evChan {
	}
	_, ok := <-evChan
	assert.False(t, ok, "Event channel should be closed after stop")
}

func TestWatcherAddDirectory(t *testing.T) {
	w, err := NewWatcher(nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.AddDirectory(filepath.Join(t.TempDir(), "missing")))

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.Error(t, w.AddDirectory(file))

	dir := t.TempDir()
	require.NoError(t, w.AddDirectory(dir))
	require.NoError(t, w.AddDirectory(dir))
	assert.Len(t, w.GetDirectories(), 1)
}
