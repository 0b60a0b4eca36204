package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/internal/model"
	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
)

// Parser extracts structured fields from log entries.
type Parser struct {
	cfg      config.ParserConfig
	patterns []*regexp.Regexp
}

// NewParser creates a new parsing processor. Each pattern is either a regex
// with named groups or the name of an entry in CommonLogPatterns.
func NewParser(cfg config.ParserConfig) (*Parser, error) {
	p := &Parser{cfg: cfg}

	for _, pattern := range cfg.Patterns {
		if common, ok := CommonLogPatterns[pattern]; ok {
			pattern = common
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
		}
		p.patterns = append(p.patterns, re)
	}

	return p, nil
}

// Name returns the processor identifier.
func (p *Parser) Name() string {
	return "parser"
}

// Process parses the log entry and populates the Parsed field.
func (p *Parser) Process(ctx context.Context, entry *model.LogEntry) error {
	if !p.cfg.Enabled {
		return nil
	}

	parsed := p.cfg.JSONAutoDetect && p.tryParseJSON(entry)
	if !parsed {
		for _, re := range p.patterns {
			if p.tryParseRegex(entry, re) {
				break
			}
		}
	}

	if p.cfg.DetectLevel {
		if _, ok := entry.Parsed["level"]; !ok {
			if level, found := ParseLevel(string(entry.Raw)); found {
				entry.Parsed["level"] = level.String()
			}
		}
	}

	return nil
}

// tryParseJSON attempts to parse the raw log as a JSON object.
func (p *Parser) tryParseJSON(entry *model.LogEntry) bool {
	raw := bytes.TrimSpace(entry.Raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return false
	}

	for k, v := range data {
		entry.Parsed[k] = v
	}

	entry.Parsed["_parsed_format"] = "json"
	return true
}

// tryParseRegex attempts to extract named groups from a regex pattern.
func (p *Parser) tryParseRegex(entry *model.LogEntry, re *regexp.Regexp) bool {
	names := re.SubexpNames()
	if len(names) <= 1 {
		return false // No named groups
	}

	matches := re.FindSubmatch(entry.Raw)
	if matches == nil {
		return false
	}

	for i, name := range names {
		if i == 0 || name == "" {
			continue
		}
		if i < len(matches) && len(matches[i]) > 0 {
			entry.Parsed[name] = string(matches[i])
		}
	}

	entry.Parsed["_parsed_format"] = "regex"
	return true
}

// CommonLogPatterns provides pre-built regex patterns for common log formats.
var CommonLogPatterns = map[string]string{
	// Apache/Nginx Combined Log Format
	"combined": `^(?P<remote_addr>\S+) - (?P<remote_user>\S+) \[(?P<time_local>[^\]]+)\] "(?P<message>[^"]*)" (?P<status>\d+) (?P<body_bytes>\d+) "(?P<http_referer>[^"]*)" "(?P<http_user_agent>[^"]*)"`,

	// Syslog (RFC 3164) without the priority prefix, as written to /var/log
	"syslog": `^(?P<syslog_timestamp>\w{3}\s+\d+\s+\d+:\d+:\d+)\s+(?P<hostname>\S+)\s+(?P<program>[^\[:]+)(?:\[(?P<pid>\d+)\])?:\s*(?P<message>.*)`,

	// "LEVEL message" and "[LEVEL] message" prefixes
	"leveled": `^\[?(?i:(?P<level>DEBUG|INFO|WARN(?:ING)?|ERROR|FATAL|CRITICAL|TRACE))\]?:?\s+(?P<message>.*)`,
}

var levelWords = []struct {
	word  string
	level discordlog.Level
}{
	{"FATAL", discordlog.LevelCritical},
	{"CRITICAL", discordlog.LevelCritical},
	{"ERROR", discordlog.LevelError},
	{"WARN", discordlog.LevelWarning},
	{"INFO", discordlog.LevelInfo},
	{"DEBUG", discordlog.LevelDebug},
	{"TRACE", discordlog.LevelDebug},
}

// ParseLevel finds the most severe level keyword in a raw line.
func ParseLevel(raw string) (discordlog.Level, bool) {
	raw = strings.ToUpper(raw)
	for _, lw := range levelWords {
		if strings.Contains(raw, lw.word) {
			return lw.level, true
		}
	}
	return discordlog.LevelInfo, false
}
