package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/photosphere/fast-tree-walk-go/lib"
	"gopkg.in/yaml.v3"
)

// EntryRow is one walked entry flattened for output.
type EntryRow struct {
	Path  string `json:"path" yaml:"path"`
	Depth int    `json:"depth" yaml:"depth"`
	Type  string `json:"type" yaml:"type"`
	Hash  string `json:"hash,omitempty" yaml:"hash,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// buildRow flattens an entry into an EntryRow; read-children errors take the
// error column when the entry has no error of its own.
func buildRow(entry *lib.Entry[struct{}]) EntryRow {
	row := EntryRow{Path: entry.Path(), Depth: entry.Depth, Type: entry.Type.String()}
	switch {
	case entry.Err != nil:
		row.Error = entry.Err.Error()
	case entry.ReadChildrenErr != nil:
		row.Error = entry.ReadChildrenErr.Error()
	}
	return row
}

// FormatTextRow writes one entry as a single line: path, then any hash, then
// any error. Directories get a trailing separator so trees scan visually.
func FormatTextRow(row EntryRow, w io.Writer) {
	line := row.Path
	if row.Type == "dir" {
		line += "/"
	}
	if row.Hash != "" {
		line += "  " + row.Hash
	}
	if row.Error != "" {
		line += "  error: " + row.Error
	}
	fmt.Fprintln(w, line)
}

// FormatJSON writes rows as an indented JSON array to w.
func FormatJSON(rows []EntryRow, w io.Writer) {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.Encode(rows)
}

// FormatYAML writes rows as a YAML sequence to w.
func FormatYAML(rows []EntryRow, w io.Writer) {
	encoder := yaml.NewEncoder(w)
	encoder.Encode(rows)
	encoder.Close()
}
