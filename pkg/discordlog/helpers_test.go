package discordlog

import (
	"bytes"
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// recordingDispatcher captures every message it is asked to send.
type recordingDispatcher struct {
	mu     sync.Mutex
	msgs   []Message
	max    int
	failOn func(Message) error
}

func (d *recordingDispatcher) Send(_ context.Context, msg Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
	if d.failOn != nil {
		return d.failOn(msg)
	}
	return nil
}

func (d *recordingDispatcher) Name() string { return "recording" }

func (d *recordingDispatcher) MaxLength() int {
	if d.max > 0 {
		return d.max
	}
	return MaxMessageLength
}

func (d *recordingDispatcher) messages() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Message, len(d.msgs))
	copy(out, d.msgs)
	return out
}

// syncBuffer is a goroutine-safe bytes.Buffer for fallback output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func bufferLogger(buf *syncBuffer) zerolog.Logger {
	return zerolog.New(buf)
}
