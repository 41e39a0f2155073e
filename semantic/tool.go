package semantic

import (
	"fmt"
	"path/filepath"
	"regexp"

	lru "github.com/hashicorp/golang-lru"
	"github.com/spf13/afero"

	"github.com/rcr/ccdb/config"
	"github.com/rcr/ccdb/events"
)

// compilerPatterns are the built-in basenames treated as compilers when the
// configuration stays silent: the gcc and clang families with cross prefixes
// and version suffixes, plus the common Fortran drivers. Objective-C and
// Objective-C++ ride on the same executables.
var compilerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(cc|c\+\+)$`),
	regexp.MustCompile(`^([\w.]+-)*gcc(-[\d.]+)?$`),
	regexp.MustCompile(`^([\w.]+-)*g\+\+(-[\d.]+)?$`),
	regexp.MustCompile(`^([\w.]+-)*clang(-[\d.]+)?$`),
	regexp.MustCompile(`^([\w.]+-)*clang\+\+(-[\d.]+)?$`),
	regexp.MustCompile(`^([\w.]+-)*gfortran(-[\d.]+)?$`),
	regexp.MustCompile(`^(flang|f77|f90|f95)$`),
	regexp.MustCompile(`^(icc|icpc|icx|icpx)$`),
}

// toolInfo is the cached classification of one executable path.
type toolInfo struct {
	recognized bool
	prepend    []string
	strip      map[string]bool
}

// Recognizer classifies executions against the configured and built-in
// compiler sets and parses recognized command lines.
type Recognizer struct {
	config *config.Config
	fs     afero.Fs
	cache  *lru.Cache
}

// NewRecognizer builds a recognizer. The filesystem is used to expand
// response files.
func NewRecognizer(cfg *config.Config, fs afero.Fs) (*Recognizer, error) {
	cache, err := lru.New(1024)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool cache: %v", err)
	}
	return &Recognizer{config: cfg, fs: fs, cache: cache}, nil
}

// Recognize classifies one completed execution. It returns nil when the
// execution is not a compiler call or compiles no source (including a call
// that only links); it never returns an error, so one
// unparseable command cannot abort a whole run.
func (r *Recognizer) Recognize(run events.Run) Recognition {
	tool := r.identify(run.Execution.Executable)
	if !tool.recognized {
		return nil
	}
	return r.parse(run, tool)
}

func (r *Recognizer) identify(executable string) toolInfo {
	if cached, ok := r.cache.Get(executable); ok {
		return cached.(toolInfo)
	}
	info := r.classify(executable)
	r.cache.Add(executable, info)
	return info
}

func (r *Recognizer) classify(executable string) toolInfo {
	base := filepath.Base(executable)

	for _, excluded := range r.config.CompilersToExclude {
		if excluded == executable || excluded == base {
			return toolInfo{}
		}
	}

	for _, compiler := range r.config.CompilersToRecognize {
		if compiler.ExecutablePath == executable || filepath.Base(compiler.ExecutablePath) == base {
			strip := make(map[string]bool, len(compiler.FlagsToStrip))
			for _, flag := range compiler.FlagsToStrip {
				strip[flag] = true
			}
			return toolInfo{recognized: true, prepend: compiler.FlagsToPrepend, strip: strip}
		}
	}

	for _, pattern := range compilerPatterns {
		if pattern.MatchString(base) {
			return toolInfo{recognized: true}
		}
	}

	return toolInfo{}
}
