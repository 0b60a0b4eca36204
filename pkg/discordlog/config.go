package discordlog

import (
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects exactly one transport and the rendering options.
// Set WebhookURL for a webhook, or Session and ChannelID for a bot channel.
type Config struct {
	WebhookURL string

	Session   BotSession
	ChannelID string

	// Level is the minimum severity forwarded. Zero forwards every record.
	Level Level

	// Format is a text/template; empty means DefaultFormat.
	Format     string
	TimeFormat string

	Style     Style
	Username  string
	AvatarURL string

	// SendTimeout bounds each send. Zero means DefaultBotTimeout for bots
	// and the HTTP client timeout for webhooks.
	SendTimeout time.Duration

	// RatePerSecond throttles sends when positive.
	RatePerSecond float64
	RateBurst     int

	HTTPClient HTTPDoer
	Fallback   *zerolog.Logger
}

// Dispatcher builds the transport described by c.
func (c Config) Dispatcher() (Dispatcher, error) {
	hasWebhook := strings.TrimSpace(c.WebhookURL) != ""
	hasBot := c.Session != nil

	switch {
	case hasWebhook && hasBot:
		return nil, malformed("cannot use both a webhook url and a bot session")
	case !hasWebhook && !hasBot:
		if c.ChannelID != "" {
			return nil, malformed("channel id given without a bot session")
		}
		return nil, malformed("either a webhook url or a bot session is required")
	}

	style, err := ParseStyle(string(c.Style))
	if err != nil {
		return nil, err
	}
	limiter := NewRateLimiter(c.RatePerSecond, c.RateBurst)

	if hasWebhook {
		opts := []WebhookOption{
			WithWebhookStyle(style),
			WithIdentity(c.Username, c.AvatarURL),
			WithWebhookRateLimiter(limiter),
		}
		if c.HTTPClient != nil {
			opts = append(opts, WithHTTPClient(c.HTTPClient))
		}
		return NewWebhookDispatcher(c.WebhookURL, opts...)
	}

	return NewBotDispatcher(c.Session, c.ChannelID,
		WithSendTimeout(c.SendTimeout),
		WithBotRateLimiter(limiter),
		WithBotStyle(style),
	)
}

// New builds an Emitter from c. Configuration errors are returned here,
// before any record is handled.
func New(c Config) (*Emitter, error) {
	target, err := c.Dispatcher()
	if err != nil {
		return nil, err
	}
	f, err := NewFormatter(c.Format, c.TimeFormat)
	if err != nil {
		return nil, err
	}

	opts := []Option{WithLevel(c.Level), WithFormatter(f)}
	if c.Fallback != nil {
		opts = append(opts, WithFallback(*c.Fallback))
	}
	if c.SendTimeout > 0 && c.Session == nil {
		opts = append(opts, WithChunkTimeout(c.SendTimeout))
	}
	return NewEmitter(target, opts...)
}

// NewLogger returns a slog.Logger named name that forwards to Discord.
// Without an explicit level it forwards INFO and above.
func NewLogger(name string, c Config) (*slog.Logger, error) {
	if c.Level == 0 {
		c.Level = LevelInfo
	}
	e, err := New(c)
	if err != nil {
		return nil, err
	}
	return slog.New(NewHandler(e, &HandlerOptions{Name: name, AddSource: true})), nil
}
