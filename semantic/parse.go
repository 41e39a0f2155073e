package semantic

import (
	"fmt"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/rcr/ccdb/events"
	"github.com/rcr/ccdb/output"
	"github.com/rcr/ccdb/shell"
)

// responseFileDepth bounds nested @file expansion.
const responseFileDepth = 10

// parse runs the flag grammar over the argument vector of a recognized
// compiler call and decides its disposition.
func (r *Recognizer) parse(run events.Run, tool toolInfo) Recognition {
	arguments := run.Execution.Arguments
	if len(arguments) == 0 {
		return nil
	}

	tokens := r.expandResponseFiles(arguments[1:], run.Execution.WorkingDir, responseFileDepth)

	var (
		flags          []string
		sources        []string
		languages      []string
		objects        int
		outputFile     string
		activeLanguage string
		compilePhase   bool
		assemblyPhase  bool
		preprocess     bool
		linkerOnly     bool
	)

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		if !strings.HasPrefix(token, "-") {
			switch {
			case activeLanguage != "" && activeLanguage != "none":
				sources = append(sources, token)
				languages = append(languages, activeLanguage)
			case isSourceFile(token):
				sources = append(sources, token)
				languages = append(languages, languageOf(token))
			default:
				objects++
			}
			continue
		}

		def, attached, _ := lookupFlag(token)

		consumed := []string{token}
		value := attached
		if def.operands > 0 {
			if i+def.operands >= len(tokens) {
				log.Warnf("flag %s expects %d operand(s) but the command line ends after it; keeping it verbatim", token, def.operands)
				flags = append(flags, token)
				continue
			}
			value = tokens[i+1]
			consumed = append(consumed, tokens[i+1:i+1+def.operands]...)
			i += def.operands
		}

		if tool.strip[def.name] || tool.strip[token] {
			continue
		}

		switch def.kind {
		case kindQuery:
			return QueryCompiler{}
		case kindPreprocess:
			preprocess = true
			flags = append(flags, consumed...)
		case kindPhaseCompile:
			compilePhase = true
			flags = append(flags, consumed...)
		case kindPhaseAssembly:
			assemblyPhase = true
			flags = append(flags, consumed...)
		case kindOutput:
			outputFile = value
		case kindLanguage:
			activeLanguage = value
		case kindLinker:
			linkerOnly = true
			flags = append(flags, consumed...)
		default:
			flags = append(flags, consumed...)
		}
	}

	if preprocess {
		return Preprocess{}
	}
	if len(sources) == 0 {
		return nil
	}
	// Object or library operands, or linker-only flags, without a compile
	// phase mean this call only links results of earlier compilations.
	if !compilePhase && !assemblyPhase && (objects > 0 || linkerOnly) {
		return nil
	}

	if len(tool.prepend) > 0 {
		flags = append(append([]string{}, tool.prepend...), flags...)
	}

	compile := &Compile{
		Compiler:   run.Execution.Executable,
		WorkingDir: run.Execution.WorkingDir,
		Sources:    sources,
		Flags:      flags,
		Output:     outputFile,
		languages:  languages,
	}
	if activeLanguage != "" && activeLanguage != "none" {
		compile.Language = activeLanguage
	} else if len(languages) > 0 {
		compile.Language = languages[0]
	}
	return compile
}

// expandResponseFiles splices the content of @file tokens in place, with
// shell-compatible tokenization, before the grammar runs. A file that cannot
// be read leaves its token untouched.
func (r *Recognizer) expandResponseFiles(tokens []string, workingDir string, depth int) []string {
	if depth == 0 {
		return tokens
	}

	expanded := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !strings.HasPrefix(token, "@") || len(token) == 1 {
			expanded = append(expanded, token)
			continue
		}

		path := token[1:]
		if !filepath.IsAbs(path) {
			path = filepath.Join(workingDir, path)
		}
		content, err := afero.ReadFile(r.fs, path)
		if err != nil {
			log.Warnf("failed to read response file %s: %v", path, err)
			expanded = append(expanded, token)
			continue
		}
		split, err := shell.Split(string(content))
		if err != nil {
			log.Warnf("failed to parse response file %s: %v", path, err)
			expanded = append(expanded, token)
			continue
		}
		expanded = append(expanded, r.expandResponseFiles(split, workingDir, depth-1)...)
	}
	return expanded
}

// Entries recognizes every run and renders the recognized compilations into
// database entries, in run order.
func (r *Recognizer) Entries(runs []events.Run) []output.Entry {
	var entries []output.Entry
	for _, run := range runs {
		recognition := r.Recognize(run)
		compile, ok := recognition.(*Compile)
		if !ok {
			if recognition != nil {
				log.Debugf("skipping %s: %s", run.Execution.Executable, describe(recognition))
			}
			continue
		}
		entries = append(entries, compile.Entries()...)
	}
	return entries
}

func describe(recognition Recognition) string {
	switch recognition.(type) {
	case QueryCompiler:
		return "compiler query"
	case Preprocess:
		return "preprocessor run"
	default:
		return fmt.Sprintf("%T", recognition)
	}
}
