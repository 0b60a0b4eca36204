package emitter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
	"github.com/GabrielNunesIT/discordlog/pkg/discordlog/discordgobot"
)

// SessionFactory opens a gateway session for a bot token.
type SessionFactory func(token string) (*discordgo.Session, error)

// DiscordOption configures the DiscordEmitter.
type DiscordOption func(*DiscordEmitter)

// WithSessionFactory replaces how the bot session is created.
func WithSessionFactory(f SessionFactory) DiscordOption {
	return func(d *DiscordEmitter) {
		d.newSession = f
	}
}

// WithHTTPClient sets the client used for webhook posts.
func WithHTTPClient(c discordlog.HTTPDoer) DiscordOption {
	return func(d *DiscordEmitter) {
		d.httpClient = c
	}
}

// DiscordEmitter forwards records through a discordlog.Emitter. In bot mode
// it owns the gateway session; the dispatcher only borrows it.
type DiscordEmitter struct {
	cfg        config.DiscordConfig
	level      discordlog.Level
	style      discordlog.Style
	fallback   zerolog.Logger
	logger     zerolog.Logger
	httpClient discordlog.HTTPDoer
	newSession SessionFactory

	session *discordgo.Session
	target  *discordlog.Emitter
}

// NewDiscordEmitter validates cfg without touching the network. A webhook
// emitter is ready immediately; a bot emitter connects in Start.
func NewDiscordEmitter(cfg config.DiscordConfig, fallback, log zerolog.Logger, opts ...DiscordOption) (*DiscordEmitter, error) {
	level, err := discordlog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	style, err := discordlog.ParseStyle(cfg.Style)
	if err != nil {
		return nil, err
	}

	d := &DiscordEmitter{
		cfg:        cfg,
		level:      level,
		style:      style,
		fallback:   fallback,
		logger:     log.With().Str("emitter", "discord").Logger(),
		newSession: openSession,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.botMode() {
		if strings.TrimSpace(cfg.WebhookURL) != "" {
			return nil, fmt.Errorf("%w: cannot use both a webhook url and a bot token", discordlog.ErrMalformedConfiguration)
		}
		if err := discordlog.ValidateChannelID(strings.TrimSpace(cfg.ChannelID)); err != nil {
			return nil, err
		}
		if _, err := discordlog.NewFormatter(cfg.Format, cfg.TimeFormat); err != nil {
			return nil, err
		}
		return d, nil
	}

	d.target, err = discordlog.New(d.libConfig(nil))
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DiscordEmitter) botMode() bool {
	return strings.TrimSpace(d.cfg.BotToken) != ""
}

func (d *DiscordEmitter) libConfig(session discordlog.BotSession) discordlog.Config {
	c := discordlog.Config{
		Level:         d.level,
		Format:        d.cfg.Format,
		TimeFormat:    d.cfg.TimeFormat,
		Style:         d.style,
		Username:      d.cfg.Username,
		AvatarURL:     d.cfg.AvatarURL,
		SendTimeout:   d.cfg.SendTimeout,
		RatePerSecond: d.cfg.RatePerSec,
		RateBurst:     d.cfg.RateBurst,
		HTTPClient:    d.httpClient,
		Fallback:      &d.fallback,
	}
	if session != nil {
		c.Session = session
		c.ChannelID = strings.TrimSpace(d.cfg.ChannelID)
	} else {
		c.WebhookURL = d.cfg.WebhookURL
	}
	return c
}

func openSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening discord gateway: %w", err)
	}
	return s, nil
}

// Name returns the emitter identifier.
func (d *DiscordEmitter) Name() string {
	return "discord"
}

// Start connects the bot session. Webhook emitters have nothing to start.
func (d *DiscordEmitter) Start(ctx context.Context) error {
	if !d.botMode() {
		d.logger.Info().Str("transport", "webhook").Msg("discord emitter started")
		return nil
	}

	s, err := d.newSession(strings.TrimSpace(d.cfg.BotToken))
	if err != nil {
		return err
	}

	target, err := discordlog.New(d.libConfig(discordgobot.New(s,
		discordgobot.WithStyle(d.style),
		discordgobot.WithRESTLookup(),
	)))
	if err != nil {
		_ = s.Close()
		return err
	}

	d.session = s
	d.target = target
	d.logger.Info().Str("transport", "bot").Str("channel_id", d.cfg.ChannelID).Msg("discord emitter started")
	return nil
}

// Emit forwards rec. Delivery failures go to the fallback logger, so the
// only error is emitting before Start.
func (d *DiscordEmitter) Emit(ctx context.Context, rec discordlog.Record) error {
	if d.target == nil {
		return errors.New("discord emitter not started")
	}
	d.target.EmitContext(ctx, rec)
	return nil
}

// Stop closes the bot session, if one was opened.
func (d *DiscordEmitter) Stop(ctx context.Context) error {
	if d.target != nil {
		st := d.target.Stats()
		d.logger.Info().Uint64("sent", st.Sent).Uint64("failed", st.Failed).Msg("discord emitter stopped")
	}
	if d.session == nil {
		return nil
	}
	err := d.session.Close()
	d.session = nil
	return err
}

// Stats returns delivery counters, zero before Start in bot mode.
func (d *DiscordEmitter) Stats() discordlog.Stats {
	if d.target == nil {
		return discordlog.Stats{}
	}
	return d.target.Stats()
}
