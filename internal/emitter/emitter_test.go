package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
)

type webhookRecorder struct {
	mu       sync.Mutex
	contents []string
	status   int
}

func newWebhookServer(t *testing.T, status int) (*httptest.Server, *webhookRecorder) {
	t.Helper()
	rec := &webhookRecorder{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Content string `json:"content"`
		}
		_ = json.Unmarshal(body, &payload)

		rec.mu.Lock()
		rec.contents = append(rec.contents, payload.Content)
		rec.mu.Unlock()

		w.WriteHeader(rec.status)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func (r *webhookRecorder) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.contents...)
}

func testRecord(level discordlog.Level, msg string) discordlog.Record {
	return discordlog.Record{
		Time:    time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		Level:   level,
		Logger:  "billing",
		Message: msg,
		Fields:  []discordlog.Field{{Key: "hostname", Value: "web01"}},
	}
}

func TestDiscordEmitter_Webhook(t *testing.T) {
	srv, rec := newWebhookServer(t, http.StatusNoContent)

	cfg := config.DiscordConfig{
		WebhookURL: srv.URL + "/api/webhooks/123/token",
		Level:      "warning",
	}
	d, err := NewDiscordEmitter(cfg, zerolog.Nop(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop(context.Background())

	assert.Equal(t, "discord", d.Name())

	require.NoError(t, d.Emit(context.Background(), testRecord(discordlog.LevelInfo, "filtered")))
	require.NoError(t, d.Emit(context.Background(), testRecord(discordlog.LevelError, "card declined")))

	assert.Equal(t, []string{"[ERROR] billing: card declined hostname=web01"}, rec.received())
	assert.Equal(t, discordlog.Stats{Sent: 1}, d.Stats())
}

func TestDiscordEmitter_FailureGoesToFallback(t *testing.T) {
	srv, _ := newWebhookServer(t, http.StatusInternalServerError)

	var fb bytes.Buffer
	d, err := NewDiscordEmitter(config.DiscordConfig{WebhookURL: srv.URL + "/api/webhooks/123/token"},
		zerolog.New(&fb), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))

	err = d.Emit(context.Background(), testRecord(discordlog.LevelError, "boom"))
	assert.NoError(t, err)
	assert.Contains(t, fb.String(), "discord delivery failed")
	assert.Contains(t, fb.String(), `"discordlog_fallback":true`)
	assert.Equal(t, uint64(1), d.Stats().Failed)
}

func TestDiscordEmitter_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DiscordConfig
	}{
		{"neither transport", config.DiscordConfig{}},
		{"bad webhook", config.DiscordConfig{WebhookURL: "ftp://example.com/x"}},
		{"bad level", config.DiscordConfig{WebhookURL: "https://discord.com/api/webhooks/1/t", Level: "loud"}},
		{"bad style", config.DiscordConfig{WebhookURL: "https://discord.com/api/webhooks/1/t", Style: "banner"}},
		{"both transports", config.DiscordConfig{WebhookURL: "https://discord.com/api/webhooks/1/t", BotToken: "x", ChannelID: "1"}},
		{"bot without channel", config.DiscordConfig{BotToken: "x"}},
		{"bot bad template", config.DiscordConfig{BotToken: "x", ChannelID: "1", Format: "{{"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDiscordEmitter(tt.cfg, zerolog.Nop(), zerolog.Nop())
			assert.ErrorIs(t, err, discordlog.ErrMalformedConfiguration)
		})
	}
}

func TestDiscordEmitter_BotStartFailure(t *testing.T) {
	factoryErr := errors.New("gateway unavailable")
	var gotToken string

	d, err := NewDiscordEmitter(config.DiscordConfig{BotToken: " secret ", ChannelID: "42"},
		zerolog.Nop(), zerolog.Nop(),
		WithSessionFactory(func(token string) (*discordgo.Session, error) {
			gotToken = token
			return nil, factoryErr
		}))
	require.NoError(t, err)

	err = d.Emit(context.Background(), testRecord(discordlog.LevelError, "early"))
	assert.Error(t, err, "emit before start")

	assert.ErrorIs(t, d.Start(context.Background()), factoryErr)
	assert.Equal(t, "secret", gotToken)
	assert.NoError(t, d.Stop(context.Background()))
}

func TestDiscordEmitter_BotNotReady(t *testing.T) {
	// A session that never received READY: sends fail fast and are reported.
	var fb bytes.Buffer
	d, err := NewDiscordEmitter(config.DiscordConfig{BotToken: "secret", ChannelID: "42"},
		zerolog.New(&fb), zerolog.Nop(),
		WithSessionFactory(func(token string) (*discordgo.Session, error) {
			return discordgo.New("Bot " + token)
		}))
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))

	require.NoError(t, d.Emit(context.Background(), testRecord(discordlog.LevelError, "hello")))
	assert.Contains(t, fb.String(), "not ready")
	assert.Equal(t, uint64(1), d.Stats().Failed)
}

func TestStdoutEmitter(t *testing.T) {
	f, err := discordlog.NewFormatter("", "")
	require.NoError(t, err)

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewStdoutEmitterWithWriter(config.EchoConfig{Enabled: true, Format: "text"}, f, &buf, zerolog.Nop())
		require.NoError(t, e.Start(context.Background()))

		require.NoError(t, e.Emit(context.Background(), testRecord(discordlog.LevelWarning, "low disk")))
		assert.Equal(t, "[WARNING] billing: low disk hostname=web01\n", buf.String())
		assert.Equal(t, "stdout", e.Name())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewStdoutEmitterWithWriter(config.EchoConfig{Enabled: true, Format: "json"}, f, &buf, zerolog.Nop())

		require.NoError(t, e.Emit(context.Background(), testRecord(discordlog.LevelError, "boom")))

		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &out))
		assert.Equal(t, "ERROR", out["level"])
		assert.Equal(t, "boom", out["message"])
		assert.Equal(t, "billing", out["logger"])
		assert.Equal(t, "web01", out["hostname"])
		assert.Equal(t, "2026-10-19T12:00:00Z", out["time"])
	})
}
