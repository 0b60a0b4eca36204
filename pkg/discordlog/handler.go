package discordlog

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

// HandlerOptions configures a slog Handler.
type HandlerOptions struct {
	// Name is reported as the record's logger name.
	Name string

	// Level adds a slog-level filter on top of the Emitter's minimum.
	Level slog.Leveler

	// AddSource resolves the caller location of each record.
	AddSource bool
}

// Handler is a slog.Handler that forwards records to an Emitter.
// Handle never returns delivery errors.
type Handler struct {
	emitter *Emitter
	opts    HandlerOptions
	fields  []Field
	prefix  string
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler wraps e. opts may be nil.
func NewHandler(e *Emitter, opts *HandlerOptions) *Handler {
	h := &Handler{emitter: e}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	if IsFallback(ctx) {
		return false
	}
	if h.opts.Level != nil && level < h.opts.Level.Level() {
		return false
	}
	return h.emitter.Enabled(FromSlog(level))
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if IsFallback(ctx) {
		return nil
	}

	rec := Record{
		Time:    r.Time,
		Level:   FromSlog(r.Level),
		Logger:  h.opts.Name,
		Message: r.Message,
	}

	fields := make([]Field, len(h.fields), len(h.fields)+r.NumAttrs())
	copy(fields, h.fields)
	skip := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == FallbackField {
			skip = true
			return false
		}
		fields = appendAttr(fields, h.prefix, a)
		return true
	})
	if skip {
		return nil
	}
	rec.Fields = fields

	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		rec.Source = &Source{File: f.File, Line: f.Line, Function: f.Function}
	}

	h.emitter.EmitContext(ctx, rec)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := h.clone()
	for _, a := range attrs {
		h2.fields = appendAttr(h2.fields, h2.prefix, a)
	}
	return h2
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.prefix = h.prefix + name + "."
	return h2
}

func (h *Handler) clone() *Handler {
	fields := make([]Field, len(h.fields))
	copy(fields, h.fields)
	return &Handler{
		emitter: h.emitter,
		opts:    h.opts,
		fields:  fields,
		prefix:  h.prefix,
	}
}

func appendAttr(fields []Field, prefix string, a slog.Attr) []Field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return fields
		}
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range group {
			fields = appendAttr(fields, p, ga)
		}
		return fields
	}

	return append(fields, Field{Key: prefix + a.Key, Value: attrString(a.Value)})
}

func attrString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"") {
			return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
		}
		return s
	default:
		return v.String()
	}
}
