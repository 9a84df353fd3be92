package scratch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobWriteAndRemove(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	job, err := ws.NewJob()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(job.Dir()), jobPrefix))

	payload := "hello scratch"
	path, sum, err := job.Write(context.Background(), strings.NewReader(payload), "a.docx")
	require.NoError(t, err)

	want := sha256.Sum256([]byte(payload))
	assert.Equal(t, hex.EncodeToString(want[:]), sum)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))

	entries, err := os.ReadDir(job.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not remain")

	require.NoError(t, job.Remove())
	_, err = os.Stat(job.Dir())
	assert.True(t, os.IsNotExist(err))
}

func TestJobPathRejectsTraversal(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	job, err := ws.NewJob()
	require.NoError(t, err)

	for _, name := range []string{"", "  ", "../x", "..", "/etc/passwd"} {
		_, err := job.Path(name)
		assert.Error(t, err, name)
	}
}

func TestJobWriteCanceled(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	job, err := ws.NewJob()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = job.Write(ctx, strings.NewReader("x"), "a.doc")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSweepRemovesOnlyStaleJobs(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root)
	require.NoError(t, err)

	stale, err := ws.NewJob()
	require.NoError(t, err)
	fresh, err := ws.NewJob()
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(root, "keep"), 0o755))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale.Dir(), old, old))

	n, err := ws.Sweep(time.Now(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(stale.Dir())
	assert.True(t, os.IsNotExist(err))
	assert.DirExists(t, fresh.Dir())
	assert.DirExists(t, filepath.Join(root, "keep"))
}
