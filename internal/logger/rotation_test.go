package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriterBasicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "app.log")

	w, err := NewRotatingWriter(logFile, 1, 0, false)
	require.NoError(t, err)
	defer w.Close()

	n, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestRotatingWriterRotatesOnSize(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "app.log")

	// 1 MB limit; write two chunks that together exceed it.
	w, err := NewRotatingWriter(logFile, 1, 0, false)
	require.NoError(t, err)
	defer w.Close()

	chunk := strings.Repeat("x", 600*1024)
	_, err = w.Write([]byte(chunk))
	require.NoError(t, err)
	_, err = w.Write([]byte(chunk))
	require.NoError(t, err)

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)

	var rotated int
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "app.log.") {
			rotated++
		}
	}
	assert.GreaterOrEqual(t, rotated, 1, "expected at least one rotated file")

	info, err := os.Stat(logFile)
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(1024*1024))
}

func TestRotatingWriterAppendsToExisting(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "app.log")

	require.NoError(t, os.WriteFile(logFile, []byte("existing\n"), 0644))

	w, err := NewRotatingWriter(logFile, 1, 0, false)
	require.NoError(t, err)

	_, err = w.Write([]byte("appended\n"))
	require.NoError(t, err)
	w.Close()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, "existing\nappended\n", string(data))
}
