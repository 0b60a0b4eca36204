package discordlog

import (
	"fmt"
	"path/filepath"
	"time"
)

// Record is a single log event handed to the Emitter.
// The Emitter only reads it.
type Record struct {
	Time    time.Time
	Level   Level
	Logger  string
	Message string

	// Source is nil when the caller location is unknown.
	Source *Source

	// Fields are rendered in order after the message.
	Fields []Field
}

// Source is the code location that produced a record.
type Source struct {
	File     string
	Line     int
	Function string
}

func (s *Source) String() string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(s.File), s.Line)
}

// Field is a key/value pair attached to a record.
type Field struct {
	Key   string
	Value string
}

// Message is one physical send: a single chunk of a rendered record.
type Message struct {
	Content string
	Level   Level
	Logger  string
	Time    time.Time
	Source  *Source

	// Part is 1-based; Parts is the number of chunks of the record.
	Part  int
	Parts int
}
