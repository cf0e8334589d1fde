// Package logger is a small factory over log/slog with production-safe
// defaults (JSON, info level) and option-based overrides for development.
package logger
