// Package listsync keeps a jobs.Store in step with the server's job list.
//
// A Synchronizer fetches immediately on Start and then on a fixed interval.
// Network failures get a short linear-backoff retry episode; while a retry is
// pending, periodic ticks stand aside so the backoff schedule is the only
// source of requests. Any other failure, or a network failure once the retry
// budget is spent, is surfaced in State and the periodic refresh carries on.
package listsync
