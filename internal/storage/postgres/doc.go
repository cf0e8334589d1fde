// Package postgres provides pgx-backed implementations of the storage
// interfaces defined by the subscription, entitlement, and preference
// packages, plus the score store used by the gated logging endpoint.
//
// Concurrency-sensitive invariants live in the schema, not in Go code:
// a partial unique index keeps at most one active subscription per
// subscriber, and the preference lock is decided inside a single
// conditional upsert. Schema migrations are in migrations/ and applied
// with goose via pg.Migrate.
package postgres
