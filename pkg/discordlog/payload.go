package discordlog

import (
	"fmt"
	"time"
)

// webhookPayload is the Discord execute-webhook request body.
type webhookPayload struct {
	Content         string           `json:"content,omitempty"`
	Username        string           `json:"username,omitempty"`
	AvatarURL       string           `json:"avatar_url,omitempty"`
	Embeds          []Embed          `json:"embeds,omitempty"`
	AllowedMentions *allowedMentions `json:"allowed_mentions,omitempty"`
}

// allowedMentions with an empty Parse list suppresses every mention.
type allowedMentions struct {
	Parse []string `json:"parse"`
}

// Embed is the subset of a Discord embed used for log records.
type Embed struct {
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

// EmbedField is a name/value row of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter is the small text under an embed.
type EmbedFooter struct {
	Text string `json:"text"`
}

// BuildEmbed renders msg as a level-colored embed.
func BuildEmbed(msg Message) Embed {
	e := Embed{
		Description: msg.Content,
		Color:       msg.Level.Color(),
		Fields: []EmbedField{
			{Name: "Level", Value: msg.Level.String(), Inline: true},
		},
	}
	if msg.Logger != "" {
		e.Fields = append(e.Fields, EmbedField{Name: "Logger", Value: msg.Logger, Inline: true})
	}
	if msg.Source != nil {
		module := msg.Source.String()
		if msg.Source.Function != "" {
			module += " (" + msg.Source.Function + ")"
		}
		e.Fields = append(e.Fields, EmbedField{Name: "Module", Value: module, Inline: true})
	}
	if !msg.Time.IsZero() {
		e.Timestamp = msg.Time.UTC().Format(time.RFC3339)
	}
	if msg.Parts > 1 {
		e.Footer = &EmbedFooter{Text: partLabel(msg)}
	}
	return e
}

func partLabel(msg Message) string {
	return fmt.Sprintf("part %d/%d", msg.Part, msg.Parts)
}
