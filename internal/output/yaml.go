package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/jacknotify/internal/history"
)

// YAMLFormatter writes each record as its own YAML document.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// Format writes records as "---" separated documents, so successive calls
// produce one valid stream.
func (f *YAMLFormatter) Format(w io.Writer, records []history.Record) error {
	for _, r := range records {
		data, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, "---\n"); err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}
