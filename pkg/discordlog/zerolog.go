package discordlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologWriter is a zerolog.LevelWriter that forwards each JSON event to an
// Emitter. Use it with zerolog.New or inside zerolog.MultiLevelWriter.
type ZerologWriter struct {
	emitter *Emitter
	name    string
}

var _ zerolog.LevelWriter = (*ZerologWriter)(nil)

// NewZerologWriter returns a writer that reports name as the logger name
// unless the event carries a "logger" field.
func NewZerologWriter(e *Emitter, name string) *ZerologWriter {
	return &ZerologWriter{emitter: e, name: name}
}

// Write handles events written without a level.
func (w *ZerologWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter. It always reports success so
// zerolog never sees Discord failures.
func (w *ZerologWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if rec, ok := w.parse(level, p); ok && w.emitter.Enabled(rec.Level) {
		w.emitter.Emit(rec)
	}
	return len(p), nil
}

func (w *ZerologWriter) parse(level zerolog.Level, p []byte) (Record, bool) {
	rec := Record{Logger: w.name, Level: FromZerolog(level), Time: time.Now()}

	line := bytes.TrimSpace(p)
	if len(line) == 0 {
		return rec, false
	}

	var m map[string]any
	if err := json.Unmarshal(line, &m); err != nil {
		rec.Message = string(line)
		return rec, true
	}
	if v, ok := m[FallbackField].(bool); ok && v {
		return rec, false
	}

	if s, ok := m[zerolog.LevelFieldName].(string); ok && level == zerolog.NoLevel {
		if l, err := zerolog.ParseLevel(s); err == nil {
			rec.Level = FromZerolog(l)
		}
	}
	if s, ok := m[zerolog.MessageFieldName].(string); ok {
		rec.Message = s
	}
	if s, ok := m[zerolog.TimestampFieldName].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			rec.Time = t
		}
	}
	if s, ok := m["logger"].(string); ok && s != "" {
		rec.Logger = s
	}
	if s, ok := m[zerolog.CallerFieldName].(string); ok {
		rec.Source = parseCaller(s)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case zerolog.LevelFieldName, zerolog.MessageFieldName, zerolog.TimestampFieldName,
			zerolog.CallerFieldName, "logger":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rec.Fields = append(rec.Fields, Field{Key: k, Value: jsonValueString(m[k])})
	}
	return rec, true
}

func parseCaller(s string) *Source {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return &Source{File: s}
	}
	line, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return &Source{File: s}
	}
	return &Source{File: s[:i], Line: line}
}

func jsonValueString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
