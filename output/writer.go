package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/rcr/ccdb/config"
)

// Read loads an existing compilation database. Both argument-array and
// command-string entries are accepted.
func Read(fs afero.Fs, path string) ([]Entry, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compilation database: %v", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse compilation database: %v", err)
	}
	return entries, nil
}

// Merge unions prior and new entries by the (directory, file, arguments)
// key, with new entries overriding prior ones, and sorts the result for
// deterministic output.
func Merge(prior, updates []Entry) []Entry {
	merged := make(map[string]Entry, len(prior)+len(updates))
	for _, entry := range prior {
		merged[entry.key()] = entry
	}
	for _, entry := range updates {
		merged[entry.key()] = entry
	}

	entries := make([]Entry, 0, len(merged))
	for _, entry := range merged {
		entries = append(entries, entry)
	}
	Sort(entries)
	return entries
}

// Sort orders entries by (file, directory), breaking remaining ties on the
// argument vector so equal inputs always serialize identically.
func Sort(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].File != entries[j].File {
			return entries[i].File < entries[j].File
		}
		if entries[i].Directory != entries[j].Directory {
			return entries[i].Directory < entries[j].Directory
		}
		return entries[i].key() < entries[j].key()
	})
}

// Write serializes the entries and replaces the file at path atomically,
// writing a temporary file in the same directory and renaming it over the
// target.
func Write(fs afero.Fs, path string, entries []Entry, format config.OutputFormat) error {
	serialized, err := serialize(entries, format)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	temp, err := afero.TempFile(fs, dir, ".compile_commands-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary output: %v", err)
	}
	tempName := temp.Name()

	if _, err := temp.Write(serialized); err != nil {
		temp.Close()
		fs.Remove(tempName)
		return fmt.Errorf("failed to write output: %v", err)
	}
	if err := temp.Close(); err != nil {
		fs.Remove(tempName)
		return fmt.Errorf("failed to close output: %v", err)
	}

	if err := fs.Rename(tempName, path); err != nil {
		fs.Remove(tempName)
		return fmt.Errorf("failed to rename output into place: %v", err)
	}
	return nil
}

func serialize(entries []Entry, format config.OutputFormat) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("[")
	for i, entry := range entries {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n  ")
		rendered, err := entry.render(format)
		if err != nil {
			return nil, err
		}
		var indented bytes.Buffer
		if err := json.Indent(&indented, rendered, "  ", "  "); err != nil {
			return nil, fmt.Errorf("failed to format entry: %v", err)
		}
		b.Write(indented.Bytes())
	}
	if len(entries) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("]\n")
	return b.Bytes(), nil
}
