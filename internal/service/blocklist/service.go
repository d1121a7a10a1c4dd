package blocklist

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/fingerprint"
	"github.com/ignite/whisperbox/internal/pkg/logger"
)

// Service implements block list business logic. It is safe for concurrent use.
type Service struct {
	repo     Repository
	failOpen bool
}

// NewService creates a block list service. With failOpen set, backend errors
// during IsBlocked are logged and treated as "not blocked".
func NewService(repo Repository, failOpen bool) *Service {
	return &Service{repo: repo, failOpen: failOpen}
}

// IsBlocked is the send-path gate.
func (s *Service) IsBlocked(ctx context.Context, recipientID, fp string) (bool, error) {
	blocked, err := s.repo.IsBlocked(ctx, recipientID, fp)
	if err != nil {
		if !s.failOpen {
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		logger.Warn("blocklist: lookup failed, allowing send", "recipient_id", recipientID, "error", err)
		return false, nil
	}
	return blocked, nil
}

// Block adds fingerprint to the recipient's block list. Idempotent: blocking
// an already blocked pair returns the existing entry unchanged.
func (s *Service) Block(ctx context.Context, recipientID, fp string, reason domain.BlockReason) (*domain.BlockEntry, error) {
	fp = strings.ToLower(strings.TrimSpace(fp))
	if !fingerprint.Valid(fp) {
		return nil, ErrInvalidFingerprint
	}
	entry, err := s.repo.Add(ctx, &domain.BlockEntry{
		RecipientID: recipientID,
		Fingerprint: fp,
		Reason:      domain.ParseBlockReason(string(reason)),
	})
	if err != nil {
		return nil, fmt.Errorf("add block: %w", err)
	}
	logger.Info("blocklist: sender blocked", "recipient_id", recipientID, "reason", string(entry.Reason))
	return entry, nil
}

// Unblock removes the block for a fingerprint.
func (s *Service) Unblock(ctx context.Context, recipientID, fp string) error {
	fp = strings.ToLower(strings.TrimSpace(fp))
	if fp == "" {
		return ErrInvalidFingerprint
	}
	return s.repo.Remove(ctx, recipientID, fp)
}

// UnblockByID removes a block by its ID.
func (s *Service) UnblockByID(ctx context.Context, recipientID, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrNotFound
	}
	return s.repo.RemoveByID(ctx, recipientID, id)
}

// List returns the recipient's blocks.
func (s *Service) List(ctx context.Context, recipientID string) ([]domain.BlockEntry, error) {
	return s.repo.List(ctx, recipientID)
}
