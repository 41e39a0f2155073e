package output

import (
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/rcr/ccdb/config"
)

// Filter applies the content-filter rules to candidate entries.
type Filter struct {
	fs       afero.Fs
	settings config.ContentFilter
}

// NewFilter builds a filter over the given filesystem. Tests pass an
// in-memory fs; the commands pass the real one.
func NewFilter(fs afero.Fs, settings config.ContentFilter) *Filter {
	return &Filter{fs: fs, settings: settings}
}

// Keep decides whether an entry survives filtering.
func (f *Filter) Keep(entry Entry) bool {
	source := entry.File
	if !filepath.IsAbs(source) {
		source = filepath.Join(entry.Directory, source)
	}
	source = filepath.Clean(source)

	if f.settings.IncludeOnlyExistingSources {
		exists, err := afero.Exists(f.fs, source)
		if err != nil || !exists {
			log.Debugf("dropping %s: source does not exist", source)
			return false
		}
	}

	for _, prefix := range f.settings.ExcludePaths {
		if hasPathPrefix(source, prefix) {
			log.Debugf("dropping %s: matches exclude path %s", source, prefix)
			return false
		}
	}

	if len(f.settings.IncludePaths) > 0 {
		for _, prefix := range f.settings.IncludePaths {
			if hasPathPrefix(source, prefix) {
				return true
			}
		}
		log.Debugf("dropping %s: no include path matches", source)
		return false
	}

	return true
}

// Apply returns the entries that survive filtering, preserving order.
func (f *Filter) Apply(entries []Entry) []Entry {
	kept := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if f.Keep(entry) {
			kept = append(kept, entry)
		}
	}
	return kept
}

func hasPathPrefix(path, prefix string) bool {
	prefix = filepath.Clean(prefix)
	if path == prefix {
		return true
	}
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
