// Package collect owns the intercept stage: the session environment handed
// to the supervised build, the collector endpoint that receives execution
// reports, the reporter client and the wrapper executor.
package collect

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment keys reserved for descendants of the supervised build.
// Children locate the collector and the reporter through them, so the
// session re-applies them across every exec.
const (
	// KeyDestination carries the session locator, the path of the
	// collector's unix socket.
	KeyDestination = "INTERCEPT_REPORT_DESTINATION"
	// KeyReporter carries the path of the reporting executor.
	KeyReporter = "INTERCEPT_REPORT_COMMAND"
	// KeyVerbose propagates the logging level into wrapper processes.
	KeyVerbose = "INTERCEPT_VERBOSE"
	// KeyWrapperDir carries the wrapper symlink directory, so a wrapper can
	// skip it when it searches PATH for the tool it shadows. Deriving the
	// directory from the wrapper's own path does not work: the process image
	// resolves to the real binary, not the symlink it was invoked through.
	KeyWrapperDir = "INTERCEPT_WRAPPER_DIR"
	// KeyPreload is the dynamic loader's preload list.
	KeyPreload = "LD_PRELOAD"
)

// Mode selects how descendants are made to report.
type Mode int

const (
	// ModePreload injects the interception library via the loader.
	ModePreload Mode = iota
	// ModeWrapper shadows compiler names with reporting symlinks on PATH.
	ModeWrapper
)

// Session describes one intercept run's injection setup.
type Session struct {
	Mode        Mode
	Destination string
	Library     string
	Executor    string
	WrapperDir  string
	Verbose     bool
}

// ChildEnvironment primes a copy of the base environment so every
// descendant reports back to the collector.
func (s *Session) ChildEnvironment(base []string) []string {
	env := append([]string{}, base...)
	env = setEnv(env, KeyDestination, s.Destination)
	env = setEnv(env, KeyReporter, s.Executor)
	if s.Verbose {
		env = setEnv(env, KeyVerbose, "1")
	}

	switch s.Mode {
	case ModePreload:
		env = setEnv(env, KeyPreload, prependPreload(getEnv(base, KeyPreload), s.Library))
	case ModeWrapper:
		env = setEnv(env, KeyWrapperDir, s.WrapperDir)
		env = setEnv(env, "PATH", s.WrapperDir+string(os.PathListSeparator)+getEnv(base, "PATH"))
	}
	return env
}

// prependPreload keeps the interception library first in an existing
// preload list.
func prependPreload(current, library string) string {
	if current == "" {
		return library
	}
	entries := strings.FieldsFunc(current, func(r rune) bool { return r == ':' || r == ' ' })
	kept := make([]string, 0, len(entries)+1)
	kept = append(kept, library)
	for _, entry := range entries {
		if entry != library {
			kept = append(kept, entry)
		}
	}
	return strings.Join(kept, ":")
}

// SetupWrapperDir creates a directory of compiler-name symlinks pointing at
// the executor, to be placed ahead of the real tools on PATH.
func SetupWrapperDir(executor string, compilers []string) (string, error) {
	dir, err := os.MkdirTemp("", "ccdb-wrappers-")
	if err != nil {
		return "", fmt.Errorf("failed to create wrapper directory: %v", err)
	}
	for _, compiler := range compilers {
		link := filepath.Join(dir, filepath.Base(compiler))
		if err := os.Symlink(executor, link); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("failed to create wrapper for %s: %v", compiler, err)
		}
	}
	return dir, nil
}

// DefaultWrapperNames are the compiler names shadowed when the operator does
// not configure an explicit set.
var DefaultWrapperNames = []string{
	"cc", "c++", "gcc", "g++", "clang", "clang++", "gfortran", "f77", "f95",
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

func getEnv(env []string, key string) string {
	prefix := key + "="
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			return entry[len(prefix):]
		}
	}
	return ""
}

// EnvironmentMap converts an environ-style list into the mapping the event
// model carries. The first '=' splits name and value.
func EnvironmentMap(environ []string) map[string]string {
	mapped := make(map[string]string, len(environ))
	for _, entry := range environ {
		if idx := strings.IndexByte(entry, '='); idx > 0 {
			mapped[entry[:idx]] = entry[idx+1:]
		}
	}
	return mapped
}
