// Package redis provides Redis connectivity for the entitlement display
// cache: client setup with startup retries and a health probe.
package redis
