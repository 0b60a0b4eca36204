// Package discordgobot adapts a github.com/bwmarrin/discordgo session to
// discordlog.BotSession.
package discordgobot

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
)

// Session borrows a discordgo session. Opening and closing the underlying
// session stays with the caller.
type Session struct {
	s     *discordgo.Session
	style discordlog.Style
	rest  bool
}

var _ discordlog.BotSession = (*Session)(nil)

// Option configures a Session.
type Option func(*Session)

// WithStyle sends chunks as plain content or as embeds.
func WithStyle(style discordlog.Style) Option {
	return func(s *Session) {
		s.style = style
	}
}

// WithRESTLookup resolves channels missing from the state cache over REST.
func WithRESTLookup() Option {
	return func(s *Session) {
		s.rest = true
	}
}

// New wraps s.
func New(s *discordgo.Session, opts ...Option) *Session {
	sess := &Session{s: s, style: discordlog.StyleContent}
	for _, opt := range opts {
		opt(sess)
	}
	return sess
}

// Ready reports whether the gateway delivered its READY event. discordgo
// updates DataReady under the session lock from its gateway goroutines.
func (s *Session) Ready() bool {
	if s.s == nil {
		return false
	}
	s.s.RLock()
	defer s.s.RUnlock()
	return s.s.DataReady
}

// Channel resolves channelID from the state cache, then optionally over REST.
func (s *Session) Channel(channelID string) (discordlog.Channel, error) {
	if s.s == nil {
		return nil, errors.New("no session")
	}

	var (
		ch  *discordgo.Channel
		err error
	)
	if s.s.State != nil {
		ch, err = s.s.State.Channel(channelID)
	} else {
		err = discordgo.ErrStateNotFound
	}
	if err != nil && s.rest {
		ch, err = s.s.Channel(channelID)
	}
	if err != nil {
		return nil, err
	}
	return &channel{s: s.s, id: ch.ID, style: s.style}, nil
}

type channel struct {
	s     *discordgo.Session
	id    string
	style discordlog.Style
}

func (c *channel) Send(ctx context.Context, msg discordlog.Message) error {
	_, err := c.s.ChannelMessageSendComplex(c.id, MessageSend(msg, c.style), discordgo.WithContext(ctx))
	return err
}

// MessageSend converts a chunk into a discordgo message with mentions disabled.
func MessageSend(msg discordlog.Message, style discordlog.Style) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
		},
	}
	if style != discordlog.StyleEmbed {
		send.Content = msg.Content
		return send
	}

	e := discordlog.BuildEmbed(msg)
	embed := &discordgo.MessageEmbed{
		Description: e.Description,
		Color:       e.Color,
		Timestamp:   e.Timestamp,
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if e.Footer != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer.Text}
	}
	send.Embeds = []*discordgo.MessageEmbed{embed}
	return send
}
