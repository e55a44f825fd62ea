// Package preflight provides readiness checks for the services and local
// paths the transcribe client depends on.
//
// The CLI "transcribe doctor" command runs RunAll and renders each Result.
// Checks for optional features (auth, cache, notifications) are skipped
// when the feature is not configured.
package preflight
