package discordlog

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// DefaultFormat renders "[LEVEL] logger: message key=value ...".
const DefaultFormat = `[{{.Level}}]{{if .Logger}} {{.Logger}}:{{end}} {{.Message}}{{range .Fields}} {{.Key}}={{.Value}}{{end}}`

// DefaultTimeFormat is used by the FmtTime template function.
const DefaultTimeFormat = "2006-01-02 15:04:05"

// Formatter renders records to text with a text/template.
//
// The template sees .Time, .Level, .Logger, .Message, .Source and .Fields,
// plus the functions FmtTime, ToUpper, ToLower and TrimSpace.
type Formatter struct {
	tmpl       *template.Template
	timeFormat string
}

// NewFormatter parses format. An empty format means DefaultFormat.
func NewFormatter(format, timeFormat string) (*Formatter, error) {
	if format == "" {
		format = DefaultFormat
	}
	if timeFormat == "" {
		timeFormat = DefaultTimeFormat
	}
	f := &Formatter{timeFormat: timeFormat}

	funcMap := template.FuncMap{
		"FmtTime": func(t time.Time) string {
			return t.Format(f.timeFormat)
		},
		"ToUpper":   strings.ToUpper,
		"ToLower":   strings.ToLower,
		"TrimSpace": strings.TrimSpace,
	}

	tmpl, err := template.New("record").Funcs(funcMap).Parse(format)
	if err != nil {
		return nil, malformed("invalid format template: %v", err)
	}
	f.tmpl = tmpl
	return f, nil
}

type templateData struct {
	Time    time.Time
	Level   string
	Logger  string
	Message string
	Source  string
	Fields  []Field
}

// Format renders rec. A template execution error falls back to a fixed layout.
func (f *Formatter) Format(rec Record) string {
	data := templateData{
		Time:    rec.Time,
		Level:   rec.Level.String(),
		Logger:  rec.Logger,
		Message: rec.Message,
		Source:  rec.Source.String(),
		Fields:  rec.Fields,
	}

	var b strings.Builder
	if err := f.tmpl.Execute(&b, data); err != nil {
		return fmt.Sprintf("[%s] %s: %s", data.Level, data.Logger, data.Message)
	}
	return b.String()
}
