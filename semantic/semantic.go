// Package semantic classifies captured executions and decomposes compiler
// command lines into compilation-database entries.
package semantic

import (
	log "github.com/sirupsen/logrus"

	"github.com/rcr/ccdb/output"
)

// Recognition is the outcome of classifying one execution. A nil
// Recognition means the execution was not a compiler call, or a compiler
// call with no source to compile or one that only links.
type Recognition interface {
	recognition()
}

// QueryCompiler marks a compiler invoked only to ask about itself, like
// --version or -print-search-dirs. It produces no entries.
type QueryCompiler struct{}

func (QueryCompiler) recognition() {}

// Preprocess marks a preprocessor-only invocation (-E, -M, -MM). It
// produces no entries.
type Preprocess struct{}

func (Preprocess) recognition() {}

// Compile is a recognized compilation, decomposed into the pieces needed to
// rebuild a per-source command line.
type Compile struct {
	Compiler   string
	WorkingDir string
	Sources    []string
	Flags      []string
	Language   string
	Output     string

	// languages holds the per-source language, aligned with Sources.
	languages []string
}

func (*Compile) recognition() {}

// Entries expands the compilation into one database entry per source file.
// An explicit -o survives only for a single-source compile; with several
// sources it cannot apply per file and is dropped.
func (c *Compile) Entries() []output.Entry {
	single := len(c.Sources) == 1
	if !single && c.Output != "" {
		log.Warnf("dropping -o %s: it cannot apply to %d sources at once", c.Output, len(c.Sources))
	}

	entries := make([]output.Entry, 0, len(c.Sources))
	for i, source := range c.Sources {
		language := c.language(i, source)

		arguments := make([]string, 0, len(c.Flags)+8)
		arguments = append(arguments, c.Compiler)
		arguments = append(arguments, c.Flags...)
		if !contains(c.Flags, "-c") && !contains(c.Flags, "-S") {
			arguments = append(arguments, "-c")
		}
		if language != "" {
			arguments = append(arguments, "-x", language)
		}
		arguments = append(arguments, source)

		entry := output.Entry{
			Directory: c.WorkingDir,
			File:      source,
			Arguments: arguments,
		}
		if single && c.Output != "" {
			entry.Arguments = append(entry.Arguments, "-o", c.Output)
			entry.Output = c.Output
		}
		entries = append(entries, entry)
	}
	return entries
}

func (c *Compile) language(i int, source string) string {
	if i < len(c.languages) && c.languages[i] != "" {
		return c.languages[i]
	}
	if c.Language != "" {
		return c.Language
	}
	return languageOf(source)
}

func contains(tokens []string, target string) bool {
	for _, token := range tokens {
		if token == target {
			return true
		}
	}
	return false
}
