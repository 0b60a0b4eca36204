// Package config provides configuration loading with layered overrides.
// Load order: defaults -> YAML/JSON file -> environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	configloader "github.com/GabrielNunesIT/go-libs/config-loader"

	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
)

// EnvPrefix is the prefix for environment overrides,
// e.g. DISCORDLOG_DISCORD_WEBHOOKURL -> discord.webhookurl.
const EnvPrefix = "DISCORDLOG_"

// Config is the root configuration structure for the discordlog agent.
type Config struct {
	LogLevel string         `koanf:"loglevel" yaml:"log_level" json:"log_level"`
	Discord  DiscordConfig  `koanf:"discord"`
	Fallback FallbackConfig `koanf:"fallback"`
	Echo     EchoConfig     `koanf:"echo"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Sources  SourceConfig   `koanf:"sources"`
}

// DiscordConfig selects the transport and how records are rendered.
// Exactly one of WebhookURL or BotToken must be set.
type DiscordConfig struct {
	WebhookURL  string        `koanf:"webhookurl" yaml:"webhook_url" json:"webhook_url"`
	BotToken    string        `koanf:"bottoken" yaml:"bot_token" json:"bot_token"`
	ChannelID   string        `koanf:"channelid" yaml:"channel_id" json:"channel_id"`
	Level       string        `koanf:"level"`
	Format      string        `koanf:"format"`
	TimeFormat  string        `koanf:"timeformat" yaml:"time_format" json:"time_format"`
	Style       string        `koanf:"style"` // "content" or "embed"
	Username    string        `koanf:"username"`
	AvatarURL   string        `koanf:"avatarurl" yaml:"avatar_url" json:"avatar_url"`
	SendTimeout time.Duration `koanf:"sendtimeout" yaml:"send_timeout" json:"send_timeout"`
	RatePerSec  float64       `koanf:"ratepersec" yaml:"rate_per_sec" json:"rate_per_sec"`
	RateBurst   int           `koanf:"rateburst" yaml:"rate_burst" json:"rate_burst"`
}

// FallbackConfig routes delivery failures. An empty Path means stderr.
type FallbackConfig struct {
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"maxsizemb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"maxbackups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `koanf:"maxagedays" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// EchoConfig mirrors forwarded records to stdout.
type EchoConfig struct {
	Enabled bool   `koanf:"enabled"`
	Format  string `koanf:"format"` // "json" or "text"
}

// PipelineConfig controls the pipeline behavior.
type PipelineConfig struct {
	BufferSize      int           `koanf:"buffersize" yaml:"buffer_size" json:"buffer_size"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	DefaultLevel    string        `koanf:"defaultlevel" yaml:"default_level" json:"default_level"`
}

// SourceConfig holds configuration for all log sources.
type SourceConfig struct {
	File    FileSourceConfig    `koanf:"file"`
	Syslog  SyslogSourceConfig  `koanf:"syslog"`
	Journal JournalSourceConfig `koanf:"journal"`
	Stdin   StdinSourceConfig   `koanf:"stdin"`
}

// FileSourceConfig configures file tailing.
type FileSourceConfig struct {
	Enabled   bool            `koanf:"enabled"`
	Paths     []string        `koanf:"paths"`
	Exclude   []string        `koanf:"exclude"`
	Processor ProcessorConfig `koanf:"processor"`
}

// SyslogSourceConfig configures the syslog listener.
type SyslogSourceConfig struct {
	Enabled   bool            `koanf:"enabled"`
	Protocol  string          `koanf:"protocol"` // "udp" or "tcp"
	Address   string          `koanf:"address"`
	Processor ProcessorConfig `koanf:"processor"`
}

// JournalSourceConfig configures the systemd journal reader.
type JournalSourceConfig struct {
	Enabled   bool            `koanf:"enabled"`
	Units     []string        `koanf:"units"`
	Processor ProcessorConfig `koanf:"processor"`
}

// StdinSourceConfig configures reading from standard input. With Multiline
// set, indented lines and stack trace lines are joined onto the previous
// entry so a traceback becomes one Discord message.
type StdinSourceConfig struct {
	Enabled   bool            `koanf:"enabled"`
	Multiline bool            `koanf:"multiline"`
	Processor ProcessorConfig `koanf:"processor"`
}

// ProcessorConfig holds the processor chain per source: filter, then
// parser, then enricher.
type ProcessorConfig struct {
	Filter   FilterConfig   `koanf:"filter"`
	Parser   ParserConfig   `koanf:"parser"`
	Enricher EnricherConfig `koanf:"enricher"`
}

// FilterConfig drops lines before they are parsed.
type FilterConfig struct {
	Enabled   bool     `koanf:"enabled"`
	DropBlank bool     `koanf:"dropblank" yaml:"drop_blank" json:"drop_blank"`
	Exclude   []string `koanf:"exclude"` // Regex matched against the raw line
}

// ParserConfig configures the parsing processor.
type ParserConfig struct {
	Enabled        bool     `koanf:"enabled"`
	JSONAutoDetect bool     `koanf:"jsonautodetect" yaml:"json_auto_detect" json:"json_auto_detect"`
	Patterns       []string `koanf:"patterns"` // Regex with named groups, or a CommonLogPatterns name
	DetectLevel    bool     `koanf:"detectlevel" yaml:"detect_level" json:"detect_level"`
}

// EnricherConfig configures the enrichment processor.
type EnricherConfig struct {
	Enabled      bool              `koanf:"enabled"`
	AddHostname  bool              `koanf:"addhostname" yaml:"add_hostname" json:"add_hostname"`
	StaticFields map[string]string `koanf:"staticfields" yaml:"static_fields" json:"static_fields"`
}

// defaults returns the default configuration values.
func defaults() Config {
	return Config{
		LogLevel: "info",
		Discord: DiscordConfig{
			Level:       "info",
			Style:       string(discordlog.StyleContent),
			SendTimeout: discordlog.DefaultBotTimeout,
			RateBurst:   1,
		},
		Fallback: FallbackConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Echo: EchoConfig{
			Format: "text",
		},
		Pipeline: PipelineConfig{
			BufferSize:      1000,
			ShutdownTimeout: 10 * time.Second,
			DefaultLevel:    "info",
		},
		Sources: SourceConfig{
			File: FileSourceConfig{
				Processor: ProcessorConfig{
					Filter:   FilterConfig{Enabled: true, DropBlank: true},
					Parser:   ParserConfig{Enabled: true, JSONAutoDetect: true, DetectLevel: true},
					Enricher: EnricherConfig{Enabled: true, AddHostname: true},
				},
			},
			Syslog: SyslogSourceConfig{
				Protocol: "udp",
				Address:  ":514",
				Processor: ProcessorConfig{
					Parser:   ParserConfig{Enabled: true},
					Enricher: EnricherConfig{Enabled: true},
				},
			},
			Journal: JournalSourceConfig{
				Processor: ProcessorConfig{
					Parser:   ParserConfig{Enabled: true},
					Enricher: EnricherConfig{Enabled: true},
				},
			},
			Stdin: StdinSourceConfig{
				Processor: ProcessorConfig{
					Filter:   FilterConfig{Enabled: true, DropBlank: true},
					Parser:   ParserConfig{Enabled: true, JSONAutoDetect: true, DetectLevel: true},
					Enricher: EnricherConfig{Enabled: true},
				},
			},
		},
	}
}

// Load reads configuration from all sources with proper override order.
// Order: defaults -> config file -> environment variables.
func Load(configPath string) (*Config, error) {
	opts := []configloader.Option[Config]{
		configloader.WithDefaults[Config](defaults()),
	}

	if configPath != "" {
		opts = append(opts, configloader.WithFile[Config](configPath))
	} else {
		for _, path := range []string{"./discordlog.yaml", "/etc/discordlog/config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				opts = append(opts, configloader.WithFile[Config](path))
				break
			}
		}
	}

	opts = append(opts, configloader.WithEnv[Config](EnvPrefix))

	loader := configloader.NewConfigLoader[Config](opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks option combinations without touching the network.
func (c *Config) Validate() error {
	var errs []error

	d := c.Discord
	hasWebhook := strings.TrimSpace(d.WebhookURL) != ""
	hasBot := strings.TrimSpace(d.BotToken) != ""
	switch {
	case hasWebhook && hasBot:
		errs = append(errs, errors.New("discord: set either webhook_url or bot_token, not both"))
	case !hasWebhook && !hasBot:
		errs = append(errs, errors.New("discord: webhook_url or bot_token is required"))
	case hasBot:
		if err := discordlog.ValidateChannelID(strings.TrimSpace(d.ChannelID)); err != nil {
			errs = append(errs, fmt.Errorf("discord: %w", err))
		}
	}

	if _, err := discordlog.ParseLevel(d.Level); err != nil {
		errs = append(errs, fmt.Errorf("discord.level: %w", err))
	}
	if _, err := discordlog.ParseLevel(c.Pipeline.DefaultLevel); err != nil {
		errs = append(errs, fmt.Errorf("pipeline.default_level: %w", err))
	}
	if _, err := discordlog.ParseStyle(d.Style); err != nil {
		errs = append(errs, fmt.Errorf("discord.style: %w", err))
	}
	if _, err := discordlog.NewFormatter(d.Format, d.TimeFormat); err != nil {
		errs = append(errs, fmt.Errorf("discord.format: %w", err))
	}
	if d.RatePerSec < 0 {
		errs = append(errs, errors.New("discord.rate_per_sec must not be negative"))
	}
	switch c.Echo.Format {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("echo.format: unknown format %q", c.Echo.Format))
	}

	return errors.Join(errs...)
}

// Enabled reports whether at least one source is enabled.
func (s SourceConfig) Enabled() bool {
	return s.File.Enabled || s.Syslog.Enabled || s.Journal.Enabled || s.Stdin.Enabled
}
