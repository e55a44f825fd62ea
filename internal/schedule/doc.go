// Package schedule abstracts delayed callbacks so polling and retry loops can
// be driven by a real clock in production and by a manual clock in tests.
package schedule
