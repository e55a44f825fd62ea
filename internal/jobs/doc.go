// Package jobs holds the client-side view of submitted videos.
//
// Job mirrors the server record. Reconcile, ApplyPatch, and Sort are pure
// functions over a Collection; Store is the single shared holder that swaps
// the collection reference under a mutex and notifies subscribers only when
// the reference actually changed. Reconcile preserves the current reference
// when an incoming snapshot is structurally identical, which is what lets
// subscribers skip redraws on quiet polls.
package jobs
