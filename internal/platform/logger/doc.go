// Package logger provides structured logging for the application.
//
// It builds on log/slog: JSON output for deployed environments, plain text
// or colorized tint output for local development, and helpers for carrying
// a request-scoped logger through a context.Context.
package logger
