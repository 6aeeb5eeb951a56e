// Package logging provides structured logging helpers built on
// log/slog: consistent attribute keys, a small Logger interface for
// dependency injection, and token sanitization so credentials never
// reach the logs.
package logging
