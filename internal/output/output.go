// Package output renders history records for the terminal.
package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/jacknotify/internal/history"
)

// Formatter formats records for output.
type Formatter interface {
	// Format writes formatted records to the writer.
	Format(w io.Writer, records []history.Record) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
)

// FormatTypes lists every supported format.
func FormatTypes() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	switch format {
	case FormatPlain, "":
		return NewPlainFormatter(opts), nil
	case FormatJSON:
		return NewJSONFormatter(opts), nil
	case FormatYAML:
		return NewYAMLFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template   string // Custom text/template for plain format
	ShowTime   bool   // Prefix plain lines with the relative receive time
	ShowClient bool   // Prefix plain lines with the client name
	Stream     bool   // One compact JSON object per line instead of an array
}
