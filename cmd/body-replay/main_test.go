package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frames.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadFrames(t *testing.T) {
	path := writeFile(t, `{"frame":10,"bodies":[{"id":7,"root":{"x":0,"y":0,"z":4}}]}

{"bodies":[]}
`)

	frames, err := readFrames(path)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, uint64(10), frames[0].Frame)
	require.Len(t, frames[0].Bodies, 1)
	assert.Equal(t, 7, frames[0].Bodies[0].ID)
	assert.Equal(t, 4.0, frames[0].Bodies[0].Root.Z)

	// Missing frame numbers are filled in by position
	assert.Equal(t, uint64(2), frames[1].Frame)
	assert.Empty(t, frames[1].Bodies)
}

func TestReadFrames_BadLine(t *testing.T) {
	path := writeFile(t, "{\"frame\":1}\nnot json\n")

	_, err := readFrames(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadFrames_MissingFile(t *testing.T) {
	_, err := readFrames(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Error(t, err)
}
