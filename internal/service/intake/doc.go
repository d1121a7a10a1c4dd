// Package intake runs the anonymous message send pipeline:
//
//	validate → classify + fingerprint → block gate → rate limit → persist → notify
//
// The block gate runs before the rate limit so a blocked sender always gets
// ErrForbidden, whatever their current rate. Nothing is persisted on either
// rejection. Notification is fire-and-forget: once the message is stored,
// dispatch failures are logged by the Notifier and never reach the caller.
//
// The visit pipeline in package visits mirrors the first two steps.
package intake
