package semantic

import (
	"path/filepath"
	"strings"
)

// sourceLanguages maps source-file suffixes to the language a compiler
// would infer for them. Uppercase suffixes are meaningful (.C is C++,
// .F is preprocessed Fortran), so the exact suffix is looked up first; a
// suffix not listed as written falls back to its lowercase form.
var sourceLanguages = map[string]string{
	".c":   "c",
	".i":   "c",
	".cc":  "c++",
	".cp":  "c++",
	".cpp": "c++",
	".cxx": "c++",
	".c++": "c++",
	".C":   "c++",
	".ii":  "c++",
	".m":   "objective-c",
	".mi":  "objective-c",
	".mm":  "objective-c++",
	".M":   "objective-c++",
	".mii": "objective-c++",
	".f":   "f77",
	".F":   "f77",
	".for": "f77",
	".FOR": "f77",
	".ftn": "f77",
	".f90": "f95",
	".F90": "f95",
	".f95": "f95",
	".F95": "f95",
	".f03": "f95",
	".f08": "f95",
	".s":   "assembler",
	".S":   "assembler-with-cpp",
	".sx":  "assembler-with-cpp",
}

// isSourceFile reports whether the operand looks like a translation-unit
// source rather than an object or library input.
func isSourceFile(path string) bool {
	return languageOf(path) != ""
}

func languageOf(path string) string {
	ext := filepath.Ext(path)
	if language, ok := sourceLanguages[ext]; ok {
		return language
	}
	if language, ok := sourceLanguages[strings.ToLower(ext)]; ok {
		return language
	}
	return ""
}
