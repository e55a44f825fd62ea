// Package polling runs bounded, cancellable insight-generation sessions.
//
// A Poller owns at most one Session at a time. Start triggers generation on
// the server, waits a fixed start delay, then fetches the full job record at
// a mode-specific interval until insights appear (initial) or change from the
// pre-call baseline (regenerate). A session ends Completed, TimedOut after
// its attempt budget, Failed on the first fetch error, or Canceled by its
// owner. Regenerate sessions that do not complete roll the caller back to the
// baseline insights.
//
// Polls are strictly sequential: the next poll is scheduled only at the end
// of the previous one. Every callback checks the session's liveness flag
// after each suspension and before touching state or rescheduling, so a
// canceled session never reports anything.
package polling
