package discordlog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Dispatcher delivers one chunk to Discord.
type Dispatcher interface {
	// Send performs a single delivery attempt. Errors are terminal for the
	// chunk; Send never retries.
	Send(ctx context.Context, msg Message) error

	// Name identifies the transport in diagnostics.
	Name() string

	// MaxLength is the largest chunk, in characters, the transport accepts.
	MaxLength() int
}

// HTTPDoer abstracts HTTP client operations for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ HTTPDoer = (*http.Client)(nil)

// Style selects how a chunk is presented in the channel.
type Style string

const (
	// StyleContent sends the chunk as plain message content.
	StyleContent Style = "content"

	// StyleEmbed sends the chunk as the description of a level-colored embed.
	StyleEmbed Style = "embed"
)

// ParseStyle validates a style name. Empty means StyleContent.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case "", StyleContent:
		return StyleContent, nil
	case StyleEmbed:
		return StyleEmbed, nil
	default:
		return StyleContent, malformed("unknown style %q", s)
	}
}

func (s Style) maxLength() int {
	if s == StyleEmbed {
		return MaxEmbedDescriptionLength
	}
	return MaxMessageLength
}

// waitLimiter blocks until lim allows one send. A nil limiter never blocks.
func waitLimiter(ctx context.Context, lim *rate.Limiter) error {
	if lim == nil {
		return nil
	}
	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", ErrTimeout, err)
	}
	return nil
}

// NewRateLimiter builds a limiter allowing perSecond sends with the given
// burst. A non-positive perSecond disables limiting.
func NewRateLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

const (
	// DefaultBotTimeout bounds the wait for a bot send.
	DefaultBotTimeout = 5 * time.Second

	// DefaultHTTPTimeout bounds a webhook POST.
	DefaultHTTPTimeout = 10 * time.Second
)
