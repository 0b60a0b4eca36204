package discordlog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, opts *HandlerOptions) (*recordingDispatcher, *slog.Logger) {
	t.Helper()
	d := &recordingDispatcher{}
	e, err := NewEmitter(d)
	require.NoError(t, err)
	return d, slog.New(NewHandler(e, opts))
}

func TestHandler_Fields(t *testing.T) {
	d, logger := newTestHandler(t, &HandlerOptions{Name: "api"})

	logger.With("request_id", "r-1").
		WithGroup("http").
		Error("request failed", slog.Int("status", 502), slog.Group("peer", slog.String("ip", "10.0.0.1")))

	msgs := d.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "[ERROR] api: request failed request_id=r-1 http.status=502 http.peer.ip=10.0.0.1", msgs[0].Content)
	assert.Equal(t, LevelError, msgs[0].Level)
}

func TestHandler_QuotesStringsWithSpaces(t *testing.T) {
	d, logger := newTestHandler(t, nil)

	logger.Warn("slow query", "sql", "select 1")

	msgs := d.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, `[WARNING] slow query sql="select 1"`, msgs[0].Content)
}

func TestHandler_LevelOption(t *testing.T) {
	d, logger := newTestHandler(t, &HandlerOptions{Level: slog.LevelWarn})

	logger.Info("skip")
	logger.Warn("keep")

	assert.Len(t, d.messages(), 1)
}

func TestHandler_AddSource(t *testing.T) {
	d := &recordingDispatcher{}
	f, err := NewFormatter("{{.Source}} {{.Message}}", "")
	require.NoError(t, err)
	e, err := NewEmitter(d, WithFormatter(f))
	require.NoError(t, err)

	slog.New(NewHandler(e, &HandlerOptions{AddSource: true})).Info("here")

	msgs := d.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "handler_test.go:")
}

func TestHandler_FallbackContextDisabled(t *testing.T) {
	d := &recordingDispatcher{}
	e, err := NewEmitter(d)
	require.NoError(t, err)
	h := NewHandler(e, nil)

	ctx := markFallback(context.Background())
	assert.False(t, h.Enabled(ctx, slog.LevelError))

	slog.New(h).ErrorContext(ctx, "loop")
	slog.New(h).Error("tagged", FallbackField, true)
	assert.Empty(t, d.messages())
}

func TestHandler_CriticalLevel(t *testing.T) {
	d, logger := newTestHandler(t, nil)

	logger.Log(context.Background(), slog.LevelError+4, "meltdown")

	msgs := d.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, LevelCritical, msgs[0].Level)
}
