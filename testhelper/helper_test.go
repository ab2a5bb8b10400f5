package testhelper

import (
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestTrimIndent(t *testing.T) {
	src := `
		first
			second
		third`

	assert.Equal(t, "first\n    second\nthird", TrimIndent(t, src))
}

func TestWriteTree(t *testing.T) {
	root := t.TempDir()

	WriteTree(t, root, map[string]string{
		"a.txt":     "A",
		"sub/b.txt": "B",
	})

	assert.Equal(t, "A", ReadFile(t, filepath.Join(root, "a.txt")))
	assert.Equal(t, "B", ReadFile(t, filepath.Join(root, "sub", "b.txt")))
}
