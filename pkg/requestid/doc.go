// Package requestid carries correlation identifiers across the client/server boundary.
//
// Outgoing calls made by the apiclient package stamp every request with an
// "X-Request-ID" header. The id is taken from the context when the caller already
// set one (WithContext) and generated otherwise (Ensure), so a single user action
// that fans out into several calls can share one id in the logs.
//
// LoggerExtractor plugs the id into slog records built by the logger package.
// Middleware is the server half used by the desktest reference backend: it
// accepts a valid incoming id or generates a fresh one, and echoes it back.
package requestid
