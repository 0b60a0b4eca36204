package discordlog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// BotSession is a connected bot owned by the host application.
// The BotDispatcher only looks channels up and sends through them; it never
// opens or closes the session.
type BotSession interface {
	// Ready reports whether the session is connected and usable.
	Ready() bool

	// Channel resolves a channel id the bot can see.
	Channel(channelID string) (Channel, error)
}

// Channel sends messages to one Discord channel.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// Executor is implemented by sessions that run work on their own event loop.
// Sessions without one get a goroutine per send.
type Executor interface {
	Submit(fn func()) error
}

// BotDispatcher sends chunks through a borrowed bot session.
type BotDispatcher struct {
	session   BotSession
	channelID string
	timeout   time.Duration
	limiter   *rate.Limiter
	maxLength int
}

// BotOption configures a BotDispatcher.
type BotOption func(*BotDispatcher)

// WithSendTimeout bounds how long Send waits for the session.
func WithSendTimeout(d time.Duration) BotOption {
	return func(b *BotDispatcher) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithBotRateLimiter throttles sends. Waiting is bounded by the send context.
func WithBotRateLimiter(lim *rate.Limiter) BotOption {
	return func(b *BotDispatcher) {
		b.limiter = lim
	}
}

// WithBotStyle sets the chunk limit to match how the session renders messages.
func WithBotStyle(s Style) BotOption {
	return func(b *BotDispatcher) {
		b.maxLength = s.maxLength()
	}
}

// NewBotDispatcher returns a dispatcher for channelID on session.
func NewBotDispatcher(session BotSession, channelID string, opts ...BotOption) (*BotDispatcher, error) {
	if session == nil {
		return nil, malformed("nil bot session")
	}
	channelID = strings.TrimSpace(channelID)
	if err := ValidateChannelID(channelID); err != nil {
		return nil, err
	}

	b := &BotDispatcher{
		session:   session,
		channelID: channelID,
		timeout:   DefaultBotTimeout,
		maxLength: MaxMessageLength,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// ValidateChannelID checks that id looks like a Discord snowflake.
func ValidateChannelID(id string) error {
	if id == "" {
		return malformed("missing channel id")
	}
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return malformed("channel id %q is not a snowflake", id)
	}
	return nil
}

// Name returns the transport identifier.
func (b *BotDispatcher) Name() string {
	return "bot"
}

// MaxLength returns the chunk limit.
func (b *BotDispatcher) MaxLength() int {
	return b.maxLength
}

// ChannelID returns the target channel.
func (b *BotDispatcher) ChannelID() string {
	return b.channelID
}

// Send schedules msg on the session and waits at most the configured timeout.
// On timeout the scheduled send keeps running; its result is discarded.
func (b *BotDispatcher) Send(ctx context.Context, msg Message) error {
	if !b.session.Ready() {
		return ErrNotReady
	}

	ch, err := b.session.Channel(b.channelID)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrChannelNotFound, b.channelID, err)
	}
	if ch == nil {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, b.channelID)
	}

	if err := waitLimiter(ctx, b.limiter); err != nil {
		return err
	}

	// Buffered so an abandoned send can still complete without blocking.
	done := make(chan error, 1)
	sendCtx := context.WithoutCancel(ctx)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: send panicked: %v", ErrTransport, r)
			}
		}()
		done <- ch.Send(sendCtx, msg)
	}

	if ex, ok := b.session.(Executor); ok {
		if err := ex.Submit(task); err != nil {
			return fmt.Errorf("%w: %w", ErrNotReady, err)
		}
	} else {
		go task()
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrTimeout, b.timeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}
