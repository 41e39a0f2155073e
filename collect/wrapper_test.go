package collect

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

// wrapperEnviron builds an environ with the wrapper dir first on PATH, the
// way ChildEnvironment primes descendants.
func wrapperEnviron(wrapperDir, toolDir, destination string) []string {
	env := []string{
		"PATH=" + strings.Join([]string{wrapperDir, toolDir}, string(os.PathListSeparator)),
		KeyWrapperDir + "=" + wrapperDir,
	}
	if destination != "" {
		env = append(env, KeyDestination+"="+destination)
	}
	return env
}

func TestRunWrapperRunsTheShadowedTool(t *testing.T) {
	wrapperDir := t.TempDir()
	toolDir := t.TempDir()

	// The wrapper dir shadows cc with a decoy: if the exclusion fails and
	// the wrapper re-resolves its own symlink, the exit code gives it away.
	decoy := placeScript(t, t.TempDir(), "decoy", "exit 99")
	require.NoError(t, os.Symlink(decoy, filepath.Join(wrapperDir, "cc")))
	placeScript(t, toolDir, "cc", "exit 3")

	code := RunWrapper([]string{"cc", "-c", "main.c"}, wrapperEnviron(wrapperDir, toolDir, ""))
	assert.Equal(t, 3, code)
}

func TestRunWrapperReportsStartAndStop(t *testing.T) {
	collector, writer := newTestCollector(t)
	wrapperDir := t.TempDir()
	toolDir := t.TempDir()

	require.NoError(t, os.Symlink(filepath.Join(toolDir, "cc"), filepath.Join(wrapperDir, "cc")))
	expected := placeScript(t, toolDir, "cc", "exit 0")

	code := RunWrapper([]string{"cc", "-c", "main.c"},
		wrapperEnviron(wrapperDir, toolDir, collector.Destination()))
	assert.Equal(t, 0, code)
	require.NoError(t, collector.Shutdown(time.Second))

	recorded := writer.all()
	require.Len(t, recorded, 2)
	require.NotNil(t, recorded[0].Started)
	assert.Equal(t, expected, recorded[0].Started.Execution.Executable)
	assert.Equal(t, []string{"cc", "-c", "main.c"}, recorded[0].Started.Execution.Arguments)
	require.NotNil(t, recorded[1].Terminated)
	assert.Equal(t, int64(0), recorded[1].Terminated.Status)
	assert.Equal(t, recorded[0].Rid, recorded[1].Rid)
}

func TestRunWrapperWithoutSessionRunsUnreported(t *testing.T) {
	toolDir := t.TempDir()
	placeScript(t, toolDir, "cc", "exit 0")

	code := RunWrapper([]string{"cc"}, []string{"PATH=" + toolDir})
	assert.Equal(t, 0, code)
}

func TestRunWrapperToolNotFound(t *testing.T) {
	code := RunWrapper([]string{"no-such-cc"}, []string{"PATH=" + t.TempDir()})
	assert.Equal(t, 127, code)
}

func TestRunWrapperPropagatesFailureStatus(t *testing.T) {
	toolDir := t.TempDir()
	placeScript(t, toolDir, "cc", "exit 1")

	code := RunWrapper([]string{"cc", "bad.c"}, []string{"PATH=" + toolDir})
	assert.Equal(t, 1, code)
}
