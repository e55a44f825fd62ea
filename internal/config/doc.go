// Package config loads, normalizes, and validates transcribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a .env file, and honours environment
// fallbacks such as SUPABASE_URL and TRANSCRIBE_API_URL. The Config type
// centralizes the API endpoint, auth session storage, sync and polling
// timings, and optional integrations in one pass.
package config
