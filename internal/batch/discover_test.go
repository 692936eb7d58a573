package batch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	dirA := filepath.Join(root, "Hyperoxia")
	writeFile(t, filepath.Join(dirA, "z.csv"), "x")
	writeFile(t, filepath.Join(dirA, "a.csv"), "x")
	writeFile(t, filepath.Join(dirA, "notes.txt"), "x")
	writeFile(t, filepath.Join(dirA, "nested", "deep.csv"), "x")
	single := filepath.Join(root, "single.tsv")
	writeFile(t, single, "x")

	files, err := Discover([]string{dirA, single})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dirA, "a.csv"),
		filepath.Join(dirA, "z.csv"),
		single,
	}, files)
}

func TestDiscover_Errors(t *testing.T) {
	_, err := Discover([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	files, err := Discover([]string{t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, files)
}
