package domain

import "time"

// BlockReason records why a recipient blocked a sender.
type BlockReason string

const (
	BlockSpam          BlockReason = "spam"
	BlockHarassment    BlockReason = "harassment"
	BlockInappropriate BlockReason = "inappropriate"
	BlockOther         BlockReason = "other"
)

// ParseBlockReason maps free input onto the enum, defaulting to BlockOther.
func ParseBlockReason(s string) BlockReason {
	switch BlockReason(s) {
	case BlockSpam, BlockHarassment, BlockInappropriate:
		return BlockReason(s)
	default:
		return BlockOther
	}
}

// BlockEntry stops one sender fingerprint from reaching one recipient.
type BlockEntry struct {
	ID          string      `json:"id" db:"id"`
	RecipientID string      `json:"recipient_id" db:"recipient_id"`
	Fingerprint string      `json:"fingerprint" db:"fingerprint"`
	Reason      BlockReason `json:"reason" db:"reason"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}
