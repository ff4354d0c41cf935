// Package log provides logging with automatic redaction of credentials,
// built on top of the standard slog package.
//
// Site configurations can carry session cookies and authorization
// headers for authenticated crawling. The RedactHandler masks any
// attribute whose key looks credential-like (cookie, token, password,
// auth and friends) before the record reaches the underlying handler,
// so verbose logs never leak secrets.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	logger.Debug("request sent",
//	    "cookie", "session=abc123",  // logged as ***REDACTED***
//	    "url", "https://example.com/gallery",
//	)
package log
