package liquid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictLoader(t *testing.T) {
	l := NewDictLoader(map[string]string{"a.liquid": "hello"})

	src, err := l.Load("a.liquid")
	require.NoError(t, err)
	assert.Equal(t, "hello", src)

	_, err = l.Load("missing.liquid")
	require.Error(t, err)
	lerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindTemplateNotFound, lerr.Kind)
}

func TestFileSystemLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tpl.liquid"), []byte("content"), 0o644))

	l := NewFileSystemLoader(dir)
	src, err := l.Load("tpl.liquid")
	require.NoError(t, err)
	assert.Equal(t, "content", src)
}

func TestFileSystemLoaderBlocksPathTraversal(t *testing.T) {
	outer := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outer, "secret.liquid"), []byte("top secret"), 0o644))

	root := filepath.Join(outer, "sandboxed")
	require.NoError(t, os.Mkdir(root, 0o755))

	l := NewFileSystemLoader(root)
	_, err := l.Load("../secret.liquid")
	require.Error(t, err)
	lerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindTemplateNotFound, lerr.Kind)
}

func TestFileSystemLoaderSearchesMultipleDirsInOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(second, "only-in-second.liquid"), []byte("found"), 0o644))

	l := NewFileSystemLoader(first, second)
	src, err := l.Load("only-in-second.liquid")
	require.NoError(t, err)
	assert.Equal(t, "found", src)
}

func TestChoiceLoaderTriesEachInOrder(t *testing.T) {
	l := NewChoiceLoader(
		NewDictLoader(map[string]string{"a.liquid": "from first"}),
		NewDictLoader(map[string]string{"a.liquid": "from second", "b.liquid": "only second"}),
	)

	src, err := l.Load("a.liquid")
	require.NoError(t, err)
	assert.Equal(t, "from first", src)

	src, err = l.Load("b.liquid")
	require.NoError(t, err)
	assert.Equal(t, "only second", src)

	_, err = l.Load("nowhere.liquid")
	require.Error(t, err)
}
