// Package output renders compilation-database entries, filters them and
// merges them with a previously written database.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rcr/ccdb/config"
	"github.com/rcr/ccdb/shell"
)

// Entry is one compilation-database record: the exact command that compiles
// File inside Directory, plus the object it produces when known.
type Entry struct {
	Directory string
	File      string
	Output    string
	Arguments []string
}

// key identifies an entry for deduplication.
func (e Entry) key() string {
	var b bytes.Buffer
	b.WriteString(e.Directory)
	b.WriteByte(0)
	b.WriteString(e.File)
	for _, argument := range e.Arguments {
		b.WriteByte(0)
		b.WriteString(argument)
	}
	return b.String()
}

// UnmarshalJSON accepts both the "arguments" array form and the legacy
// "command" string form.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Directory string   `json:"directory"`
		File      string   `json:"file"`
		Output    string   `json:"output"`
		Arguments []string `json:"arguments"`
		Command   string   `json:"command"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	arguments := raw.Arguments
	if arguments == nil && raw.Command != "" {
		split, err := shell.Split(raw.Command)
		if err != nil {
			return fmt.Errorf("failed to parse command field: %v", err)
		}
		arguments = split
	}

	e.Directory = raw.Directory
	e.File = raw.File
	e.Output = raw.Output
	e.Arguments = arguments
	return nil
}

// render writes the entry with the fixed key order the format demands:
// directory, arguments or command, file, output.
func (e Entry) render(format config.OutputFormat) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')

	if err := writeField(&b, "directory", e.Directory, false); err != nil {
		return nil, err
	}
	if format.CommandAsArray {
		if err := writeField(&b, "arguments", e.Arguments, true); err != nil {
			return nil, err
		}
	} else {
		if err := writeField(&b, "command", shell.Join(e.Arguments), true); err != nil {
			return nil, err
		}
	}
	if err := writeField(&b, "file", e.File, true); err != nil {
		return nil, err
	}
	if e.Output != "" && !format.DropOutputField {
		if err := writeField(&b, "output", e.Output, true); err != nil {
			return nil, err
		}
	}

	b.WriteByte('}')
	return b.Bytes(), nil
}

func writeField(b *bytes.Buffer, name string, value interface{}, comma bool) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s field: %v", name, err)
	}
	if comma {
		b.WriteByte(',')
	}
	b.WriteByte('"')
	b.WriteString(name)
	b.WriteString(`":`)
	b.Write(encoded)
	return nil
}
