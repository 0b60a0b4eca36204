// Package discordlog forwards log records to a Discord channel.
//
// Records are rendered with a text template, split into chunks that fit
// Discord's message size limit and delivered through a Dispatcher: either a
// WebhookDispatcher that POSTs to a channel webhook, or a BotDispatcher that
// sends through a bot session owned by the host application.
//
// The Emitter never returns delivery errors to the logging call. Failures are
// reported to a fallback zerolog logger so a broken Discord integration
// cannot break the application's logging.
//
// Inbound adapters are provided for log/slog (NewHandler) and zerolog
// (NewZerologWriter).
package discordlog
