// Package pg provides PostgreSQL connectivity for the service: pgx pool
// setup with startup retries, goose migrations, a health probe, and
// helpers for classifying common Postgres errors.
package pg
