// Package log provides a sanitizing slog handler for urlscope.
//
// Discovery runs may be configured with session cookies and auth headers
// to crawl behind a login. The SecureHandler wrapper redacts those
// values from every log record, by attribute key and by value shape,
// regardless of which underlying handler formats the output.
package log
