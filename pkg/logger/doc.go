// Package logger builds the *slog.Logger used across deskkit.
//
// New assembles a text or JSON handler from functional options. Every record
// gets the attributes of the registered context extractors (such as the
// correlation id from the requestid package), and values under secret keys
// (token, password, authorization, credential, idempotency_key) are replaced
// with Redacted, including inside groups and attributes bound with With.
//
//	log := logger.New(
//		logger.WithEnvironment("production", "deskctl"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//
// Components accept a logger through their own options and fall back to Discard,
// so library code stays silent unless the host application opts in.
//
// Attribute helpers (EntityID, IntentKey, SessionState, ...) keep key names
// consistent between the session, mutation, submit and pager packages.
package logger
