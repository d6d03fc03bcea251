package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/jacknotify/internal/history"
)

// JSONFormatter formats records as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes records as an indented JSON array, or as JSON lines when
// streaming.
func (f *JSONFormatter) Format(w io.Writer, records []history.Record) error {
	encoder := json.NewEncoder(w)
	if f.opts.Stream {
		for _, r := range records {
			if err := encoder.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}

	if records == nil {
		records = []history.Record{}
	}
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}
