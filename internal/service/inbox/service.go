// Package inbox serves the recipient's dashboard: listing, reading,
// flagging and deleting messages, and on-demand abuse analysis of a sender.
package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/service/suspicion"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Page is one slice of an inbox plus its counters.
type Page struct {
	Messages []domain.Message `json:"messages"`
	Counts
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Service implements inbox operations. It is safe for concurrent use.
type Service struct {
	repo     Repository
	detector *suspicion.Detector
	now      func() time.Time
}

// NewService creates an inbox service.
func NewService(repo Repository, detector *suspicion.Detector) *Service {
	return &Service{repo: repo, detector: detector, now: time.Now}
}

// List returns a page of the recipient's messages, newest first.
func (s *Service) List(ctx context.Context, recipientID string, q ListQuery) (*Page, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Filter = domain.ParseMessageFilter(string(q.Filter))

	msgs, err := s.repo.List(ctx, recipientID, q)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	counts, err := s.repo.Counts(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return &Page{Messages: msgs, Counts: counts, Limit: q.Limit, Offset: q.Offset}, nil
}

// Get returns one of the recipient's messages.
func (s *Service) Get(ctx context.Context, recipientID, id string) (*domain.Message, error) {
	return s.repo.Get(ctx, recipientID, id)
}

// MarkRead marks a message read. Repeating it keeps the first read time.
func (s *Service) MarkRead(ctx context.Context, recipientID, id string) error {
	return s.repo.MarkRead(ctx, recipientID, id, s.now().UTC())
}

// Flag sets or clears the flag.
func (s *Service) Flag(ctx context.Context, recipientID, id string, flagged bool) error {
	return s.repo.SetFlag(ctx, recipientID, id, flagged)
}

// Delete removes a message permanently.
func (s *Service) Delete(ctx context.Context, recipientID, id string) error {
	return s.repo.Delete(ctx, recipientID, id)
}

// Suspicion analyses the sender of message id across the recipient's inbox.
func (s *Service) Suspicion(ctx context.Context, recipientID, id string) (suspicion.Result, error) {
	msg, err := s.repo.Get(ctx, recipientID, id)
	if err != nil {
		return suspicion.Result{}, err
	}
	history, err := s.repo.BySender(ctx, recipientID, msg.SenderFingerprint)
	if err != nil {
		return suspicion.Result{}, fmt.Errorf("load sender history: %w", err)
	}
	return s.detector.Analyze(history, msg.SenderFingerprint), nil
}
