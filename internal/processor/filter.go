package processor

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/internal/model"
)

// Filter drops lines that should never be posted: blank lines and lines
// matching an exclude pattern.
type Filter struct {
	cfg     config.FilterConfig
	exclude []*regexp.Regexp
}

// NewFilter compiles the exclude patterns.
func NewFilter(cfg config.FilterConfig) (*Filter, error) {
	f := &Filter{cfg: cfg}
	for _, pattern := range cfg.Exclude {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		f.exclude = append(f.exclude, re)
	}
	return f, nil
}

func (f *Filter) Name() string { return "filter" }

func (f *Filter) Process(_ context.Context, entry *model.LogEntry) error {
	if !f.cfg.Enabled {
		return nil
	}
	if f.cfg.DropBlank && len(bytes.TrimSpace(entry.Raw)) == 0 {
		return ErrDropped
	}
	for _, re := range f.exclude {
		if re.Match(entry.Raw) {
			return ErrDropped
		}
	}
	return nil
}
