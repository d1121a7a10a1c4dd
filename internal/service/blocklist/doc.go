// Package blocklist implements the recipient block list.
//
// A block stops one sender fingerprint from reaching one recipient. Blocks
// are created and removed by the recipient and checked on every send, before
// the rate limit, so a blocked sender always sees the same rejection.
//
// Because fingerprints rotate with the daily salt, a block matches the
// sender's origin for the UTC day the blocked message was sent. That is the
// privacy tradeoff of day-scoped fingerprints.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package blocklist
