package discordlog

import (
	"errors"
	"fmt"
)

var (
	ErrHTTP                   = errors.New("discordlog: http error")
	ErrTransport              = errors.New("discordlog: transport error")
	ErrChannelNotFound        = errors.New("discordlog: channel not found")
	ErrNotReady               = errors.New("discordlog: bot session not ready")
	ErrTimeout                = errors.New("discordlog: send timed out")
	ErrMalformedConfiguration = errors.New("discordlog: malformed configuration")
)

// maxErrorBody caps the response body kept on an HTTPError.
const maxErrorBody = 1024

// HTTPError is returned when a webhook answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("discordlog: webhook returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("discordlog: webhook returned status %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) Unwrap() error { return ErrHTTP }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedConfiguration, fmt.Sprintf(format, args...))
}
