// Package httpserver provides a small wrapper around net/http with
// graceful shutdown, environment-driven configuration, and probe
// handlers for liveness and readiness checks.
//
// # Usage
//
//	srv := httpserver.NewFromConfig(cfg, log)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", slog.Any("error", err))
//	}
//
// Run blocks until the context is canceled or a SIGINT/SIGTERM arrives,
// then drains in-flight requests within the configured shutdown timeout.
package httpserver
