// Package log provides logging with automatic redaction of credentials,
// built on top of the standard slog package.
//
// Book files may carry session cookies and authorization headers so that
// sitebook can crawl access-protected documentation. The RedactingHandler
// masks those values before they reach log output, even in verbose mode,
// so a shared log never leaks a working credential.
package log
