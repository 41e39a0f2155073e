package collect

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
	return path
}

func TestResolveExecutableOnPath(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	expected := placeExecutable(t, second, "cc")

	pathEnv := strings.Join([]string{first, second}, string(os.PathListSeparator))
	resolved, err := ResolveExecutable("cc", "/", pathEnv, "")
	require.NoError(t, err)
	assert.Equal(t, expected, resolved)
}

func TestResolveExecutableSkipsExcludedDir(t *testing.T) {
	wrappers := t.TempDir()
	real := t.TempDir()
	placeExecutable(t, wrappers, "cc")
	expected := placeExecutable(t, real, "cc")

	pathEnv := strings.Join([]string{wrappers, real}, string(os.PathListSeparator))
	resolved, err := ResolveExecutable("cc", "/", pathEnv, wrappers)
	require.NoError(t, err)
	assert.Equal(t, expected, resolved)
}

func TestResolveExecutableRelativeToken(t *testing.T) {
	workingDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(workingDir, "bin"), 0755))
	expected := placeExecutable(t, filepath.Join(workingDir, "bin"), "tool")

	resolved, err := ResolveExecutable("bin/tool", workingDir, "", "")
	require.NoError(t, err)
	assert.Equal(t, expected, resolved)
}

func TestResolveExecutableAbsoluteToken(t *testing.T) {
	expected := placeExecutable(t, t.TempDir(), "tool")

	resolved, err := ResolveExecutable(expected, "/", "", "")
	require.NoError(t, err)
	assert.Equal(t, expected, resolved)
}

func TestResolveExecutableRejectsNonExecutable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := ResolveExecutable(path, "/", "", "")
	assert.Error(t, err)

	_, err = ResolveExecutable("data.txt", "/", dir, "")
	assert.Error(t, err)
}

func TestResolveExecutableNotFound(t *testing.T) {
	_, err := ResolveExecutable("no-such-tool", "/", t.TempDir(), "")
	assert.Error(t, err)
}
