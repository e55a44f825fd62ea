// Package notifications pushes job outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never branch on whether notifications are enabled. Watch attaches
// a Service to a jobs.Store and fires once per job when its status moves into
// completed or failed, honoring the per-outcome toggles in config.
package notifications
