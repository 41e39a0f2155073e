package collect

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveExecutable replays the search the exec*p family performs, so
// reports carry the binary that will actually run instead of a shell token.
// A token containing a slash resolves against the working directory; a bare
// name is searched on pathEnv. Entries equal to excludeDir are skipped,
// which lets the wrapper find the tool it shadows.
func ResolveExecutable(token, workingDir, pathEnv, excludeDir string) (string, error) {
	if strings.ContainsRune(token, '/') {
		candidate := token
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(workingDir, candidate)
		}
		candidate = filepath.Clean(candidate)
		if isExecutable(candidate) {
			return candidate, nil
		}
		return "", fmt.Errorf("%s is not an executable", candidate)
	}

	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			dir = "."
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(workingDir, dir)
		}
		if excludeDir != "" && filepath.Clean(dir) == filepath.Clean(excludeDir) {
			continue
		}
		candidate := filepath.Join(dir, token)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s not found on PATH", token)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}
