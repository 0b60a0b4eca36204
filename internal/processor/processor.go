// Package processor turns raw source lines into structured entries before
// they are rendered for Discord.
package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/GabrielNunesIT/discordlog/internal/model"
)

// ErrDropped is returned when a processor decides the entry must not reach
// Discord. It is not a failure.
var ErrDropped = errors.New("entry dropped")

// Processor parses, filters or enriches a LogEntry in place.
type Processor interface {
	Process(ctx context.Context, entry *model.LogEntry) error
	Name() string
}

// Chain runs processors in order and stops at the first error.
type Chain struct {
	processors []Processor
}

// NewChain creates a chain from processors.
func NewChain(processors ...Processor) *Chain {
	return &Chain{processors: processors}
}

// Process applies every processor. A dropped entry yields ErrDropped
// unwrapped; other errors carry the processor name.
func (c *Chain) Process(ctx context.Context, entry *model.LogEntry) error {
	for _, p := range c.processors {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Process(ctx, entry); err != nil {
			if errors.Is(err, ErrDropped) {
				return ErrDropped
			}
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	return nil
}

func (c *Chain) Name() string { return "chain" }

// Add appends p.
func (c *Chain) Add(p Processor) {
	c.processors = append(c.processors, p)
}

// Len returns the number of processors.
func (c *Chain) Len() int {
	return len(c.processors)
}

// Names lists the processors in order, for startup logs.
func (c *Chain) Names() []string {
	names := make([]string, len(c.processors))
	for i, p := range c.processors {
		names[i] = p.Name()
	}
	return names
}
