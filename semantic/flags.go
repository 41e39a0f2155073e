package semantic

import (
	"sort"
	"strings"
)

type flagKind int

const (
	// kindPlain flags are retained verbatim in the rebuilt command.
	kindPlain flagKind = iota
	// kindQuery flags turn the whole call into a compiler query.
	kindQuery
	// kindPreprocess flags select a preprocessor-only phase.
	kindPreprocess
	// kindOutput is -o; it names the object and is handled per entry.
	kindOutput
	// kindLanguage is -x; it sets the language of the following inputs.
	kindLanguage
	// kindLinker flags feed the link step only.
	kindLinker
	// kindPhaseCompile is -c.
	kindPhaseCompile
	// kindPhaseAssembly is -S.
	kindPhaseAssembly
)

// flagDef describes one flag shape: how the token matches and how many
// separate operand tokens it consumes.
type flagDef struct {
	name     string
	exact    bool
	prefix   bool
	operands int
	kind     flagKind
}

var flagTable = []flagDef{
	// Compiler queries.
	{name: "--version", exact: true, kind: kindQuery},
	{name: "-version", exact: true, kind: kindQuery},
	{name: "--help", exact: true, prefix: true, kind: kindQuery},
	{name: "-###", exact: true, kind: kindQuery},
	{name: "-dumpmachine", exact: true, kind: kindQuery},
	{name: "-dumpversion", exact: true, kind: kindQuery},
	{name: "-dumpfullversion", exact: true, kind: kindQuery},
	{name: "-dumpspecs", exact: true, kind: kindQuery},
	{name: "-print-", prefix: true, kind: kindQuery},
	{name: "--print-", prefix: true, kind: kindQuery},

	// Phase selectors.
	{name: "-c", exact: true, kind: kindPhaseCompile},
	{name: "-S", exact: true, kind: kindPhaseAssembly},
	{name: "-E", exact: true, kind: kindPreprocess},
	{name: "-M", exact: true, kind: kindPreprocess},
	{name: "-MM", exact: true, kind: kindPreprocess},

	// Dependency generation that still compiles.
	{name: "-MD", exact: true, kind: kindPlain},
	{name: "-MMD", exact: true, kind: kindPlain},
	{name: "-MG", exact: true, kind: kindPlain},
	{name: "-MP", exact: true, kind: kindPlain},
	{name: "-MF", exact: true, operands: 1, kind: kindPlain},
	{name: "-MT", exact: true, operands: 1, kind: kindPlain},
	{name: "-MQ", exact: true, operands: 1, kind: kindPlain},

	// Output and language selection.
	{name: "-o", exact: true, prefix: true, operands: 1, kind: kindOutput},
	{name: "-x", exact: true, prefix: true, operands: 1, kind: kindLanguage},

	// Preprocessor inputs with separate or attached values.
	{name: "-I", exact: true, prefix: true, operands: 1, kind: kindPlain},
	{name: "-D", exact: true, prefix: true, operands: 1, kind: kindPlain},
	{name: "-U", exact: true, prefix: true, operands: 1, kind: kindPlain},
	{name: "-include", exact: true, operands: 1, kind: kindPlain},
	{name: "-imacros", exact: true, operands: 1, kind: kindPlain},
	{name: "-isystem", exact: true, operands: 1, kind: kindPlain},
	{name: "-iquote", exact: true, operands: 1, kind: kindPlain},
	{name: "-idirafter", exact: true, operands: 1, kind: kindPlain},
	{name: "-iprefix", exact: true, operands: 1, kind: kindPlain},
	{name: "-iwithprefix", exact: true, operands: 1, kind: kindPlain},
	{name: "-iwithprefixbefore", exact: true, operands: 1, kind: kindPlain},
	{name: "-isysroot", exact: true, operands: 1, kind: kindPlain},
	{name: "-imultilib", exact: true, operands: 1, kind: kindPlain},
	{name: "--sysroot", exact: true, prefix: true, operands: 1, kind: kindPlain},
	{name: "-Xpreprocessor", exact: true, operands: 1, kind: kindPlain},
	{name: "-Xclang", exact: true, operands: 1, kind: kindPlain},
	{name: "-Xassembler", exact: true, operands: 1, kind: kindPlain},
	{name: "-B", exact: true, prefix: true, operands: 1, kind: kindPlain},

	// Target and machine selection.
	{name: "-target", exact: true, operands: 1, kind: kindPlain},
	{name: "--target", exact: true, prefix: true, operands: 1, kind: kindPlain},
	{name: "-arch", exact: true, operands: 1, kind: kindPlain},
	{name: "-march", prefix: true, kind: kindPlain},
	{name: "-mtune", prefix: true, kind: kindPlain},
	{name: "--param", exact: true, operands: 1, kind: kindPlain},

	// Language standard and runtime.
	{name: "-std", prefix: true, kind: kindPlain},
	{name: "-stdlib", prefix: true, kind: kindPlain},

	// Linker-only surface; retained but remembered to spot pure links.
	{name: "-l", prefix: true, kind: kindLinker},
	{name: "-L", exact: true, prefix: true, operands: 1, kind: kindLinker},
	{name: "-Wl,", prefix: true, kind: kindLinker},
	{name: "-Xlinker", exact: true, operands: 1, kind: kindLinker},
	{name: "-shared", exact: true, kind: kindLinker},
	{name: "-static", exact: true, kind: kindLinker},
	{name: "-static-libgcc", exact: true, kind: kindLinker},
	{name: "-static-libstdc++", exact: true, kind: kindLinker},
	{name: "-rdynamic", exact: true, kind: kindLinker},
	{name: "-nostdlib", exact: true, kind: kindLinker},
	{name: "-nodefaultlibs", exact: true, kind: kindLinker},
	{name: "-nostartfiles", exact: true, kind: kindLinker},
	{name: "-pie", exact: true, kind: kindLinker},
	{name: "-no-pie", exact: true, kind: kindLinker},
	{name: "-T", exact: true, operands: 1, kind: kindLinker},
	{name: "-u", exact: true, operands: 1, kind: kindLinker},
	{name: "-z", exact: true, operands: 1, kind: kindLinker},
	{name: "-framework", exact: true, operands: 1, kind: kindLinker},
	{name: "-rpath", exact: true, operands: 1, kind: kindLinker},
	{name: "-install_name", exact: true, operands: 1, kind: kindLinker},
}

var (
	exactFlags  map[string]flagDef
	prefixFlags []flagDef
)

func init() {
	exactFlags = make(map[string]flagDef, len(flagTable))
	for _, def := range flagTable {
		if def.exact {
			exactFlags[def.name] = def
		}
		if def.prefix {
			prefixFlags = append(prefixFlags, def)
		}
	}
	// Longest prefix wins, so -Wl, is tested before -W would be.
	sort.Slice(prefixFlags, func(i, j int) bool {
		return len(prefixFlags[i].name) > len(prefixFlags[j].name)
	})
}

// lookupFlag finds the definition for a flag token. Attached-value matches
// (like -Iinclude) consume no separate operand and report the glued value.
func lookupFlag(token string) (def flagDef, attached string, ok bool) {
	if def, found := exactFlags[token]; found {
		return def, "", true
	}
	for _, candidate := range prefixFlags {
		if strings.HasPrefix(token, candidate.name) && token != candidate.name {
			def := candidate
			def.operands = 0
			return def, token[len(candidate.name):], true
		}
	}
	if strings.HasPrefix(token, "-") {
		return flagDef{name: token, kind: kindPlain}, "", true
	}
	return flagDef{}, "", false
}
