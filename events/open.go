package events

import (
	"path/filepath"
	"strings"
)

// NewWriter opens an event log for writing. The backend is picked by file
// extension: .db, .sqlite and .sqlite3 use the sqlite database, everything
// else the framed file format, which truncates an existing file.
func NewWriter(path string) (Writer, error) {
	if isSqlitePath(path) {
		return newSqliteWriter(path)
	}
	return newFramedWriter(path)
}

// NewReader opens an event log for streaming.
func NewReader(path string) (Reader, error) {
	if isSqlitePath(path) {
		return newSqliteReader(path)
	}
	return newFramedReader(path)
}

func isSqlitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}
