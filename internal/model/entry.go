// Package model defines the entry type that flows from sources to Discord.
package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
)

// LogEntry is a single line read from a source, before it becomes a
// discordlog.Record.
type LogEntry struct {
	// Timestamp is when the entry was read, unless the parser found one.
	Timestamp time.Time

	// Source identifies which ingestor produced this entry.
	Source string

	// Raw contains the original log line as received.
	Raw []byte

	// Parsed holds fields extracted during processing.
	Parsed map[string]any

	// Metadata holds enrichment data like hostname or static fields.
	Metadata map[string]string
}

// NewLogEntry creates a new LogEntry with initialized maps and current timestamp.
func NewLogEntry(source string, raw []byte) *LogEntry {
	return &LogEntry{
		Timestamp: time.Now(),
		Source:    source,
		Raw:       raw,
		Parsed:    make(map[string]any),
		Metadata:  make(map[string]string),
	}
}

// Parsed keys consumed by Record.
var (
	messageKeys = []string{"message", "msg", "syslog_message"}
	loggerKeys  = []string{"logger", "component", "identifier", "program", "unit"}
	levelKeys   = []string{"level", "severity", "lvl"}
	timeKeys    = []string{"time", "timestamp", "ts"}
)

// Record converts the entry, using def when no level was parsed.
func (e *LogEntry) Record(def discordlog.Level) discordlog.Record {
	used := make(map[string]bool)
	take := func(keys []string) (any, bool) {
		for _, k := range keys {
			if v, ok := e.Parsed[k]; ok {
				used[k] = true
				return v, true
			}
		}
		return nil, false
	}

	rec := discordlog.Record{
		Time:    e.Timestamp,
		Level:   def,
		Logger:  e.Source,
		Message: strings.TrimSpace(string(e.Raw)),
	}

	if v, ok := take(messageKeys); ok {
		rec.Message = fmt.Sprint(v)
	}
	if v, ok := take(loggerKeys); ok {
		if s := fmt.Sprint(v); s != "" {
			rec.Logger = s
		}
	}
	if v, ok := take(levelKeys); ok {
		if l, err := discordlog.ParseLevel(fmt.Sprint(v)); err == nil {
			rec.Level = l
		}
	} else if v, ok := e.Parsed["syslog_severity"].(int); ok {
		used["syslog_severity"] = true
		rec.Level = syslogLevel(v)
	}
	if v, ok := take(timeKeys); ok {
		if s, isStr := v.(string); isStr {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				rec.Time = t
			}
		}
	}

	var fields []discordlog.Field
	for _, k := range sortedKeys(e.Metadata) {
		fields = append(fields, discordlog.Field{Key: k, Value: e.Metadata[k]})
	}
	for _, k := range sortedKeys(e.Parsed) {
		if used[k] || strings.HasPrefix(k, "_") || strings.HasPrefix(k, "syslog_") {
			continue
		}
		fields = append(fields, discordlog.Field{Key: k, Value: fmt.Sprint(e.Parsed[k])})
	}
	rec.Fields = fields
	return rec
}

// syslogLevel maps RFC 5424 severities onto record levels.
func syslogLevel(severity int) discordlog.Level {
	switch {
	case severity <= 2:
		return discordlog.LevelCritical
	case severity == 3:
		return discordlog.LevelError
	case severity == 4:
		return discordlog.LevelWarning
	case severity <= 6:
		return discordlog.LevelInfo
	default:
		return discordlog.LevelDebug
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
