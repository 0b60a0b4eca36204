package discordlog

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FallbackField marks events written to the fallback logger. Inbound
// adapters drop events carrying it so failures never loop back into Discord.
const FallbackField = "discordlog_fallback"

type fallbackKey struct{}

func markFallback(ctx context.Context) context.Context {
	return context.WithValue(ctx, fallbackKey{}, true)
}

// IsFallback reports whether ctx belongs to a fallback report.
func IsFallback(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(fallbackKey{}).(bool)
	return v
}

// Emitter renders records and hands their chunks to a Dispatcher.
// It is safe for concurrent use.
type Emitter struct {
	target       Dispatcher
	formatter    *Formatter
	minLevel     Level
	maxLength    int
	chunkTimeout time.Duration
	fallback     zerolog.Logger

	sent   atomic.Uint64
	failed atomic.Uint64
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithLevel drops records below l.
func WithLevel(l Level) Option {
	return func(e *Emitter) {
		e.minLevel = l
	}
}

// WithFormatter replaces the default formatter.
func WithFormatter(f *Formatter) Option {
	return func(e *Emitter) {
		if f != nil {
			e.formatter = f
		}
	}
}

// WithFallback sets the logger that receives delivery failures.
func WithFallback(l zerolog.Logger) Option {
	return func(e *Emitter) {
		e.fallback = l
	}
}

// WithMaxLength lowers the chunk size below the transport limit.
func WithMaxLength(n int) Option {
	return func(e *Emitter) {
		e.maxLength = n
	}
}

// WithChunkTimeout bounds each physical send.
func WithChunkTimeout(d time.Duration) Option {
	return func(e *Emitter) {
		e.chunkTimeout = d
	}
}

// NewEmitter returns an Emitter delivering through target.
func NewEmitter(target Dispatcher, opts ...Option) (*Emitter, error) {
	if target == nil {
		return nil, malformed("no dispatch target")
	}
	f, err := NewFormatter("", "")
	if err != nil {
		return nil, err
	}

	e := &Emitter{
		target:    target,
		formatter: f,
		fallback:  DefaultFallback(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// DefaultFallback writes JSON lines to stderr.
func DefaultFallback() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Str("component", "discordlog").Logger()
}

// Enabled reports whether records at l are forwarded.
func (e *Emitter) Enabled(l Level) bool {
	return l >= e.minLevel
}

// Target returns the configured dispatcher.
func (e *Emitter) Target() Dispatcher {
	return e.target
}

// Emit delivers rec with a background context.
func (e *Emitter) Emit(rec Record) {
	e.EmitContext(context.Background(), rec)
}

// EmitContext renders rec and sends every chunk in order. Failed chunks are
// reported to the fallback logger and do not stop later chunks.
func (e *Emitter) EmitContext(ctx context.Context, rec Record) {
	if IsFallback(ctx) || !e.Enabled(rec.Level) {
		return
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}

	chunks := Split(e.formatter.Format(rec), e.chunkLimit())
	for i, chunk := range chunks {
		msg := Message{
			Content: chunk,
			Level:   rec.Level,
			Logger:  rec.Logger,
			Time:    rec.Time,
			Source:  rec.Source,
			Part:    i + 1,
			Parts:   len(chunks),
		}
		if err := e.send(ctx, msg); err != nil {
			e.failed.Add(1)
			e.report(ctx, msg, err)
			continue
		}
		e.sent.Add(1)
	}
}

func (e *Emitter) chunkLimit() int {
	limit := e.target.MaxLength()
	if e.maxLength > 0 && (limit <= 0 || e.maxLength < limit) {
		limit = e.maxLength
	}
	return limit
}

func (e *Emitter) send(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: dispatcher panicked: %v", ErrTransport, r)
		}
	}()

	if e.chunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.chunkTimeout)
		defer cancel()
	}
	return e.target.Send(ctx, msg)
}

func (e *Emitter) report(ctx context.Context, msg Message, err error) {
	e.fallback.Warn().
		Ctx(markFallback(ctx)).
		Bool(FallbackField, true).
		Err(err).
		Str("transport", e.target.Name()).
		Str("level", msg.Level.String()).
		Str("logger", msg.Logger).
		Int("part", msg.Part).
		Int("parts", msg.Parts).
		Msg("discord delivery failed")
}

// Stats counts physical sends since the Emitter was created.
type Stats struct {
	Sent   uint64
	Failed uint64
}

// Stats returns delivery counters.
func (e *Emitter) Stats() Stats {
	return Stats{Sent: e.sent.Load(), Failed: e.failed.Load()}
}
