package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/internal/model"
	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
)

func TestParser_JSONAutoDetect(t *testing.T) {
	cfg := config.ParserConfig{
		Enabled:        true,
		JSONAutoDetect: true,
	}

	parser, err := NewParser(cfg)
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}

	tests := []struct {
		name     string
		raw      string
		wantKey  string
		wantVal  any
		wantJSON bool
	}{
		{
			name:     "valid JSON object",
			raw:      `{"level":"info","msg":"test"}`,
			wantKey:  "level",
			wantVal:  "info",
			wantJSON: true,
		},
		{
			name:     "plain text",
			raw:      "just a plain log line",
			wantJSON: false,
		},
		{
			name:     "JSON array is not an object",
			raw:      `[1,2,3]`,
			wantJSON: false,
		},
		{
			name:     "JSON with whitespace",
			raw:      `  {"key": "value"}  `,
			wantKey:  "key",
			wantVal:  "value",
			wantJSON: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := model.NewLogEntry("test", []byte(tt.raw))
			if err := parser.Process(context.Background(), entry); err != nil {
				t.Fatalf("Process failed: %v", err)
			}

			if tt.wantJSON {
				if entry.Parsed["_parsed_format"] != "json" {
					t.Errorf("expected _parsed_format=json, got %v", entry.Parsed["_parsed_format"])
				}
				if entry.Parsed[tt.wantKey] != tt.wantVal {
					t.Errorf("expected %s=%v, got %v", tt.wantKey, tt.wantVal, entry.Parsed[tt.wantKey])
				}
			} else if _, ok := entry.Parsed["_parsed_format"]; ok {
				t.Errorf("expected no _parsed_format for non-JSON, got %v", entry.Parsed["_parsed_format"])
			}
		})
	}
}

func TestParser_RegexPatterns(t *testing.T) {
	cfg := config.ParserConfig{
		Enabled: true,
		Patterns: []string{
			`(?P<level>\w+): (?P<message>.+)`,
		},
	}

	parser, err := NewParser(cfg)
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}

	entry := model.NewLogEntry("test", []byte("INFO: application started"))
	if err := parser.Process(context.Background(), entry); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if entry.Parsed["level"] != "INFO" {
		t.Errorf("expected level=INFO, got %v", entry.Parsed["level"])
	}
	if entry.Parsed["message"] != "application started" {
		t.Errorf("expected message='application started', got %v", entry.Parsed["message"])
	}
}

func TestParser_CommonPatternByName(t *testing.T) {
	parser, err := NewParser(config.ParserConfig{Enabled: true, Patterns: []string{"syslog"}})
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}

	entry := model.NewLogEntry("file", []byte("Oct 19 10:00:01 web01 sshd[4242]: Accepted publickey for deploy"))
	if err := parser.Process(context.Background(), entry); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if entry.Parsed["program"] != "sshd" {
		t.Errorf("expected program=sshd, got %v", entry.Parsed["program"])
	}
	if entry.Parsed["pid"] != "4242" {
		t.Errorf("expected pid=4242, got %v", entry.Parsed["pid"])
	}
	if entry.Parsed["message"] != "Accepted publickey for deploy" {
		t.Errorf("unexpected message: %v", entry.Parsed["message"])
	}
}

func TestParser_InvalidPattern(t *testing.T) {
	if _, err := NewParser(config.ParserConfig{Enabled: true, Patterns: []string{"(?P<broken"}}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestParser_DetectLevel(t *testing.T) {
	parser, err := NewParser(config.ParserConfig{Enabled: true, JSONAutoDetect: true, DetectLevel: true})
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}

	entry := model.NewLogEntry("stdin", []byte("2026-10-19 ERROR payment declined"))
	_ = parser.Process(context.Background(), entry)
	if entry.Parsed["level"] != "ERROR" {
		t.Errorf("expected detected level=ERROR, got %v", entry.Parsed["level"])
	}

	// A parsed level wins over keyword detection.
	entry = model.NewLogEntry("stdin", []byte(`{"level":"debug","msg":"ERROR in name only"}`))
	_ = parser.Process(context.Background(), entry)
	if entry.Parsed["level"] != "debug" {
		t.Errorf("expected parsed level=debug, got %v", entry.Parsed["level"])
	}

	entry = model.NewLogEntry("stdin", []byte("nothing to see"))
	_ = parser.Process(context.Background(), entry)
	if _, ok := entry.Parsed["level"]; ok {
		t.Errorf("expected no level, got %v", entry.Parsed["level"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw   string
		want  discordlog.Level
		found bool
	}{
		{"FATAL: disk gone", discordlog.LevelCritical, true},
		{"an error occurred", discordlog.LevelError, true},
		{"[warning] low memory", discordlog.LevelWarning, true},
		{"info starting", discordlog.LevelInfo, true},
		{"trace enter", discordlog.LevelDebug, true},
		{"plain", discordlog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, found := ParseLevel(tt.raw)
		if got != tt.want || found != tt.found {
			t.Errorf("ParseLevel(%q) = %v,%v, want %v,%v", tt.raw, got, found, tt.want, tt.found)
		}
	}
}

func TestEnricher(t *testing.T) {
	cfg := config.EnricherConfig{
		Enabled:     true,
		AddHostname: true,
		StaticFields: map[string]string{
			"env": "test",
		},
	}

	enricher := WithHostname(cfg, "test-host")
	entry := model.NewLogEntry("test", []byte("log line"))

	if err := enricher.Process(context.Background(), entry); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if entry.Metadata["hostname"] != "test-host" {
		t.Errorf("expected hostname=test-host, got %v", entry.Metadata["hostname"])
	}
	if entry.Metadata["env"] != "test" {
		t.Errorf("expected env=test, got %v", entry.Metadata["env"])
	}
}

func TestEnricher_Disabled(t *testing.T) {
	enricher := WithHostname(config.EnricherConfig{AddHostname: true}, "test-host")
	entry := model.NewLogEntry("test", []byte("log line"))

	_ = enricher.Process(context.Background(), entry)
	if len(entry.Metadata) != 0 {
		t.Errorf("expected no metadata from disabled enricher, got %v", entry.Metadata)
	}
}

func TestChain(t *testing.T) {
	parser, _ := NewParser(config.ParserConfig{
		Enabled:        true,
		JSONAutoDetect: true,
	})
	enricher := WithHostname(config.EnricherConfig{
		Enabled:     true,
		AddHostname: true,
	}, "chain-test")

	chain := NewChain(parser, enricher)
	if chain.Len() != 2 {
		t.Fatalf("expected 2 processors, got %d", chain.Len())
	}

	entry := model.NewLogEntry("test", []byte(`{"msg":"hello"}`))
	if err := chain.Process(context.Background(), entry); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if entry.Parsed["msg"] != "hello" {
		t.Errorf("expected msg=hello from parser, got %v", entry.Parsed["msg"])
	}
	if entry.Metadata["hostname"] != "chain-test" {
		t.Errorf("expected hostname=chain-test from enricher, got %v", entry.Metadata["hostname"])
	}
}

func TestChain_CancelledContext(t *testing.T) {
	chain := NewChain(WithHostname(config.EnricherConfig{Enabled: true}, "h"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := chain.Process(ctx, model.NewLogEntry("test", []byte("x")))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEnricher_KeepsExistingKeys(t *testing.T) {
	enricher := WithHostname(config.EnricherConfig{
		Enabled:      true,
		AddHostname:  true,
		StaticFields: map[string]string{"facility": "static"},
	}, "local")

	entry := model.NewLogEntry("syslog", []byte("x"))
	entry.Metadata["hostname"] = "sender"
	entry.Metadata["facility"] = "daemon"

	if err := enricher.Process(context.Background(), entry); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if entry.Metadata["hostname"] != "sender" || entry.Metadata["facility"] != "daemon" {
		t.Errorf("existing metadata overwritten: %v", entry.Metadata)
	}
}

func TestFilter(t *testing.T) {
	f, err := NewFilter(config.FilterConfig{
		Enabled:   true,
		DropBlank: true,
		Exclude:   []string{`healthz`, `^DEBUG `},
	})
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}

	tests := []struct {
		line    string
		dropped bool
	}{
		{"   ", true},
		{"GET /healthz 200", true},
		{"DEBUG cache warm", true},
		{"ERROR payment failed", false},
		{"level=DEBUG ok", false},
	}
	for _, tt := range tests {
		err := f.Process(context.Background(), model.NewLogEntry("test", []byte(tt.line)))
		if got := errors.Is(err, ErrDropped); got != tt.dropped {
			t.Errorf("%q: dropped=%v, want %v (err=%v)", tt.line, got, tt.dropped, err)
		}
	}
}

func TestFilter_Disabled(t *testing.T) {
	f, err := NewFilter(config.FilterConfig{DropBlank: true})
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}
	if err := f.Process(context.Background(), model.NewLogEntry("test", []byte(""))); err != nil {
		t.Errorf("disabled filter returned %v", err)
	}
}

func TestFilter_InvalidPattern(t *testing.T) {
	if _, err := NewFilter(config.FilterConfig{Enabled: true, Exclude: []string{"("}}); err == nil {
		t.Error("expected error for invalid exclude pattern")
	}
}

func TestChain_DropStopsProcessing(t *testing.T) {
	f, _ := NewFilter(config.FilterConfig{Enabled: true, DropBlank: true})
	enricher := WithHostname(config.EnricherConfig{Enabled: true, AddHostname: true}, "h")
	chain := NewChain(f, enricher)

	if got := chain.Names(); len(got) != 2 || got[0] != "filter" || got[1] != "enricher" {
		t.Fatalf("unexpected names %v", got)
	}

	entry := model.NewLogEntry("test", []byte(""))
	if err := chain.Process(context.Background(), entry); !errors.Is(err, ErrDropped) {
		t.Fatalf("expected ErrDropped, got %v", err)
	}
	if _, ok := entry.Metadata["hostname"]; ok {
		t.Error("enricher ran after the entry was dropped")
	}
}
