// Package ratelimit implements the sliding-window send limit.
//
// The window is not stored anywhere. Every check counts the sender's
// persisted messages created within the trailing window, so the limit slides
// with the clock rather than resetting on fixed hour boundaries. Counts are
// global per fingerprint, across all recipients.
//
// Checks are read-then-decide and are not isolated from concurrent inserts.
// Callers that need a tighter cap wrap check+insert in a per-fingerprint lock
// (see distlock.KeyedLocker).
package ratelimit
