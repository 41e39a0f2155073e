package collect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildEnvironmentPreload(t *testing.T) {
	session := &Session{
		Mode:        ModePreload,
		Destination: "/tmp/session/collector.sock",
		Library:     "/usr/local/lib/ccdb/libexec.so",
		Executor:    "/usr/local/bin/ccdb",
	}

	env := session.ChildEnvironment([]string{"PATH=/usr/bin", "HOME=/home/u"})

	assert.Contains(t, env, KeyDestination+"=/tmp/session/collector.sock")
	assert.Contains(t, env, KeyReporter+"=/usr/local/bin/ccdb")
	assert.Contains(t, env, KeyPreload+"=/usr/local/lib/ccdb/libexec.so")
	assert.NotContains(t, env, KeyVerbose+"=1")
	assert.Contains(t, env, "HOME=/home/u")
}

func TestChildEnvironmentKeepsLibraryFirstInPreloadList(t *testing.T) {
	session := &Session{
		Mode:    ModePreload,
		Library: "/lib/libexec.so",
	}

	env := session.ChildEnvironment([]string{"LD_PRELOAD=/lib/other.so:/lib/libexec.so"})
	assert.Contains(t, env, "LD_PRELOAD=/lib/libexec.so:/lib/other.so")
}

func TestChildEnvironmentWrapperPath(t *testing.T) {
	session := &Session{
		Mode:       ModeWrapper,
		WrapperDir: "/tmp/wrappers",
		Verbose:    true,
	}

	env := session.ChildEnvironment([]string{"PATH=/usr/bin:/bin"})

	assert.Contains(t, env, "PATH=/tmp/wrappers"+string(os.PathListSeparator)+"/usr/bin:/bin")
	assert.Contains(t, env, KeyWrapperDir+"=/tmp/wrappers")
	assert.Contains(t, env, KeyVerbose+"=1")
}

func TestChildEnvironmentDoesNotMutateBase(t *testing.T) {
	base := []string{"PATH=/usr/bin"}
	session := &Session{Mode: ModeWrapper, WrapperDir: "/w"}

	session.ChildEnvironment(base)
	assert.Equal(t, []string{"PATH=/usr/bin"}, base)
}

func TestSetupWrapperDir(t *testing.T) {
	executor := filepath.Join(t.TempDir(), "ccdb")
	require.NoError(t, os.WriteFile(executor, []byte("#!/bin/sh\n"), 0755))

	dir, err := SetupWrapperDir(executor, []string{"cc", "g++"})
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	for _, name := range []string{"cc", "g++"} {
		target, err := os.Readlink(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, executor, target)
	}
}

func TestEnvironmentMap(t *testing.T) {
	mapped := EnvironmentMap([]string{"PATH=/usr/bin", "EMPTY=", "EQ=a=b", "garbage"})

	assert.Equal(t, "/usr/bin", mapped["PATH"])
	assert.Equal(t, "", mapped["EMPTY"])
	assert.Equal(t, "a=b", mapped["EQ"])
	assert.NotContains(t, mapped, "garbage")
}
