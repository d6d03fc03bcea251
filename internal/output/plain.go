package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/jacknotify/internal/history"
)

// PlainFormatter writes one line per record.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter. A custom template is
// executed against *history.Record; it may call .RelativeTime and the
// helpers "upper" and "comma".
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes records as plain text. Every record ends in exactly one newline.
func (f *PlainFormatter) Format(w io.Writer, records []history.Record) error {
	for i := range records {
		if _, err := io.WriteString(w, f.line(&records[i])); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) line(r *history.Record) string {
	if f.template != nil {
		var sb strings.Builder
		if err := f.template.Execute(&sb, r); err == nil {
			return strings.TrimRight(sb.String(), "\n") + "\n"
		}
	}

	var sb strings.Builder
	if f.opts.ShowTime {
		fmt.Fprintf(&sb, "[%s] ", r.RelativeTime())
	}
	if f.opts.ShowClient && r.Client != "" {
		fmt.Fprintf(&sb, "<%s> ", r.Client)
	}
	sb.WriteString(r.Text)
	sb.WriteString("\n")
	return sb.String()
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"upper": strings.ToUpper,
		"comma": func(v uint32) string {
			return humanize.Comma(int64(v))
		},
	}
}
