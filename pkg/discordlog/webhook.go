package discordlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

const userAgent = "discordlog (https://github.com/GabrielNunesIT/discordlog, 1.0)"

// WebhookDispatcher posts chunks to a Discord channel webhook.
type WebhookDispatcher struct {
	url       string
	redacted  string
	client    HTTPDoer
	limiter   *rate.Limiter
	style     Style
	username  string
	avatarURL string
}

// WebhookOption configures a WebhookDispatcher.
type WebhookOption func(*WebhookDispatcher)

// WithHTTPClient sets the HTTP client used for POSTs.
func WithHTTPClient(client HTTPDoer) WebhookOption {
	return func(w *WebhookDispatcher) {
		w.client = client
	}
}

// WithWebhookRateLimiter throttles POSTs. Waiting is bounded by the send context.
func WithWebhookRateLimiter(lim *rate.Limiter) WebhookOption {
	return func(w *WebhookDispatcher) {
		w.limiter = lim
	}
}

// WithWebhookStyle selects plain content or embeds.
func WithWebhookStyle(s Style) WebhookOption {
	return func(w *WebhookDispatcher) {
		w.style = s
	}
}

// WithIdentity overrides the username and avatar shown for webhook messages.
func WithIdentity(username, avatarURL string) WebhookOption {
	return func(w *WebhookDispatcher) {
		w.username = username
		w.avatarURL = avatarURL
	}
}

// NewWebhookDispatcher validates rawURL and returns a dispatcher for it.
// rawURL must be an absolute http(s) URL with an /api/webhooks/{id}/{token}
// path; anything else fails with ErrMalformedConfiguration.
func NewWebhookDispatcher(rawURL string, opts ...WebhookOption) (*WebhookDispatcher, error) {
	redacted, err := validateWebhookURL(rawURL)
	if err != nil {
		return nil, err
	}

	w := &WebhookDispatcher{
		url:      strings.TrimSpace(rawURL),
		redacted: redacted,
		client:   &http.Client{Timeout: DefaultHTTPTimeout},
		style:    StyleContent,
	}
	for _, opt := range opts {
		opt(w)
	}
	if _, err := ParseStyle(string(w.style)); err != nil {
		return nil, err
	}
	if w.client == nil {
		return nil, malformed("nil http client")
	}
	return w, nil
}

// Name returns the transport identifier.
func (w *WebhookDispatcher) Name() string {
	return "webhook"
}

// MaxLength returns the chunk limit for the configured style.
func (w *WebhookDispatcher) MaxLength() int {
	return w.style.maxLength()
}

// String returns the webhook URL with its token masked.
func (w *WebhookDispatcher) String() string {
	return w.redacted
}

// Send issues one POST for msg.
func (w *WebhookDispatcher) Send(ctx context.Context, msg Message) error {
	if err := waitLimiter(ctx, w.limiter); err != nil {
		return err
	}

	data, err := json.Marshal(w.payload(msg))
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (w *WebhookDispatcher) payload(msg Message) webhookPayload {
	p := webhookPayload{
		Username:        w.username,
		AvatarURL:       w.avatarURL,
		AllowedMentions: &allowedMentions{Parse: []string{}},
	}
	if w.style == StyleEmbed {
		p.Embeds = []Embed{BuildEmbed(msg)}
	} else {
		p.Content = msg.Content
	}
	return p
}

// validateWebhookURL checks the webhook endpoint shape and returns the URL
// with the token masked.
func validateWebhookURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", malformed("empty webhook url")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", malformed("invalid webhook url: %v", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", malformed("webhook url must be http(s), got scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", malformed("webhook url has no host")
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segs {
		if seg != "webhooks" || !isAPIPrefix(segs[:i]) {
			continue
		}
		if len(segs) < i+3 {
			break
		}
		id, token := segs[i+1], segs[i+2]
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return "", malformed("webhook id %q is not numeric", id)
		}
		if token == "" {
			return "", malformed("webhook url has no token")
		}
		masked := *u
		masked.RawQuery = ""
		masked.Path = "/" + strings.Join(append(append([]string{}, segs[:i+2]...), "***"), "/")
		masked.RawPath = masked.Path
		return masked.String(), nil
	}
	return "", malformed("webhook url path must contain /api/webhooks/{id}/{token}")
}

// isAPIPrefix reports whether the segments before "webhooks" end in "api"
// or "api/v{N}".
func isAPIPrefix(segs []string) bool {
	n := len(segs)
	if n >= 1 && segs[n-1] == "api" {
		return true
	}
	return n >= 2 && segs[n-2] == "api" && strings.HasPrefix(segs[n-1], "v")
}
