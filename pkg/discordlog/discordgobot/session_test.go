package discordgobot

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
)

const channelID = "123456789012345678"

func newSession(t *testing.T) *discordgo.Session {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	require.NoError(t, err)
	return s
}

func TestSession_NotReadyBeforeGateway(t *testing.T) {
	s := newSession(t)
	sess := New(s)
	assert.False(t, sess.Ready())

	d, err := discordlog.NewBotDispatcher(sess, channelID)
	require.NoError(t, err)

	err = d.Send(context.Background(), discordlog.Message{Content: "x"})
	assert.ErrorIs(t, err, discordlog.ErrNotReady)
}

func TestSession_UnknownChannel(t *testing.T) {
	s := newSession(t)
	s.DataReady = true
	sess := New(s)

	d, err := discordlog.NewBotDispatcher(sess, channelID)
	require.NoError(t, err)

	err = d.Send(context.Background(), discordlog.Message{Content: "x"})
	assert.ErrorIs(t, err, discordlog.ErrChannelNotFound)
}

func TestSession_ChannelFromState(t *testing.T) {
	s := newSession(t)
	s.DataReady = true
	require.NoError(t, s.State.ChannelAdd(&discordgo.Channel{ID: channelID, Type: discordgo.ChannelTypeDM}))

	ch, err := New(s).Channel(channelID)
	require.NoError(t, err)
	assert.NotNil(t, ch)
}

func TestSession_NilSession(t *testing.T) {
	sess := New(nil)
	assert.False(t, sess.Ready())
	_, err := sess.Channel(channelID)
	assert.Error(t, err)
}

func TestMessageSend_Content(t *testing.T) {
	send := MessageSend(discordlog.Message{Content: "hello @everyone"}, discordlog.StyleContent)

	assert.Equal(t, "hello @everyone", send.Content)
	assert.Empty(t, send.Embeds)
	require.NotNil(t, send.AllowedMentions)
	assert.Empty(t, send.AllowedMentions.Parse)
}

func TestMessageSend_Embed(t *testing.T) {
	msg := discordlog.Message{
		Content: "disk full",
		Level:   discordlog.LevelWarning,
		Logger:  "storage",
		Time:    time.Date(2026, 1, 18, 8, 0, 0, 0, time.UTC),
		Part:    2,
		Parts:   3,
	}
	send := MessageSend(msg, discordlog.StyleEmbed)

	assert.Empty(t, send.Content)
	require.Len(t, send.Embeds, 1)
	embed := send.Embeds[0]
	assert.Equal(t, "disk full", embed.Description)
	assert.Equal(t, 0xF1C40F, embed.Color)
	assert.Equal(t, "2026-01-18T08:00:00Z", embed.Timestamp)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "WARNING", embed.Fields[0].Value)
	assert.Equal(t, "storage", embed.Fields[1].Value)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "part 2/3", embed.Footer.Text)
}

func TestSession_ReadyWhileGatewayUpdates(t *testing.T) {
	s := newSession(t)
	sess := New(s)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			s.Lock()
			s.DataReady = i%2 == 0
			s.Unlock()
		}
	}()

	for i := 0; i < 1000; i++ {
		_ = sess.Ready()
	}
	<-done

	s.Lock()
	s.DataReady = true
	s.Unlock()
	assert.True(t, sess.Ready())
}
