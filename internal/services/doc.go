// Package services defines shared utilities consumed by the sync engine and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, component names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap and Mark helpers so failures from
//     the API client, auth provider, and polling loops can be classified with
//     errors.Is without losing the text shown to users.
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform across the client.
package services
