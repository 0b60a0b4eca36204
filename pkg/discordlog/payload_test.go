package discordlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildEmbed_Module(t *testing.T) {
	e := BuildEmbed(Message{
		Content: "disk full",
		Level:   LevelWarning,
		Logger:  "storage",
		Source:  &Source{File: "/srv/app/disk.go", Line: 42, Function: "app.checkDisk"},
	})

	assert.Equal(t, []EmbedField{
		{Name: "Level", Value: "WARNING", Inline: true},
		{Name: "Logger", Value: "storage", Inline: true},
		{Name: "Module", Value: "disk.go:42 (app.checkDisk)", Inline: true},
	}, e.Fields)
	assert.EqualValues(t, 0xF1C40F, e.Color)
}

func TestBuildEmbed_NoSource(t *testing.T) {
	e := BuildEmbed(Message{Content: "x", Level: LevelInfo})

	assert.Equal(t, []EmbedField{{Name: "Level", Value: "INFO", Inline: true}}, e.Fields)
	assert.Empty(t, e.Timestamp)
	assert.Nil(t, e.Footer)
}
