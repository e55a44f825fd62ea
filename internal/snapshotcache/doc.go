// Package snapshotcache persists the last reconciled job collection to
// SQLite so the CLI can show last-known state when the API is unreachable.
// Each save replaces the whole snapshot inside one transaction; the server's
// ordering is preserved through a position column.
package snapshotcache
