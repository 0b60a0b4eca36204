// Package emitter defines the destinations that receive records from the
// pipeline: Discord itself and an optional local echo.
package emitter

import (
	"context"

	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
)

// Emitter is a pipeline sink. Start is called once before any Emit, Emit
// may be called concurrently, and Stop releases what Start acquired.
// An Emit error means the record was not accepted at all; per-chunk Discord
// failures go to the fallback log instead.
type Emitter interface {
	Name() string
	Start(ctx context.Context) error
	Emit(ctx context.Context, rec discordlog.Record) error
	Stop(ctx context.Context) error
}
