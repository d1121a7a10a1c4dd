package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ignite/whisperbox/internal/classify"
	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/fingerprint"
	"github.com/ignite/whisperbox/internal/pkg/logger"
	"github.com/ignite/whisperbox/internal/service/profile"
)

// PreviewLength is the number of characters of content carried in a notification.
const PreviewLength = 80

// SendRequest is one inbound anonymous message.
type SendRequest struct {
	RecipientUsername string
	Content           string
	// ClientIP is the raw address as extracted from the forwarding headers.
	ClientIP string
	Request  classify.Input
}

// SendResult is returned for an accepted message.
type SendResult struct {
	MessageID string    `json:"message_id"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Deps wires a Pipeline. Locker and Notifier may be nil.
type Deps struct {
	Profiles   Profiles
	Messages   MessageStore
	Blocks     BlockGate
	Limiter    RateLimiter
	Hasher     *fingerprint.Hasher
	Classifier *classify.Classifier
	Notifier   Notifier
	Locker     Locker
}

// Pipeline runs the send state machine. It is safe for concurrent use.
type Pipeline struct {
	Deps
	now   func() time.Time
	newID func() string
}

// NewPipeline creates a Pipeline.
func NewPipeline(d Deps) *Pipeline {
	return &Pipeline{
		Deps:  d,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Send validates, gates, stores and announces one message.
func (p *Pipeline) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	content, err := ValidateContent(req.Content)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.RecipientUsername) == "" {
		return nil, fmt.Errorf("%w: recipient_username is required", ErrValidation)
	}
	recipient, err := p.Profiles.ByUsername(ctx, req.RecipientUsername)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: lookup recipient: %v", ErrBackendUnavailable, err)
	}

	clientCtx := p.Classifier.Classify(req.Request)
	fp := p.Hasher.Hash(req.ClientIP)

	blocked, err := p.Blocks.IsBlocked(ctx, recipient.ID, fp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if blocked {
		logger.Info("intake: blocked sender rejected", "recipient_id", recipient.ID)
		return nil, ErrForbidden
	}

	msg := &domain.Message{
		ID:                p.newID(),
		RecipientID:       recipient.ID,
		Content:           content,
		SenderFingerprint: fp,
		SenderIP:          req.ClientIP,
		Client:            clientCtx,
	}

	var result *SendResult
	store := func(ctx context.Context) error {
		decision, err := p.Limiter.Check(ctx, fp)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if !decision.Allowed {
			return &RateLimitedError{ResetAt: decision.ResetAt, Now: p.now().UTC()}
		}
		msg.CreatedAt = p.now().UTC()
		if err := p.Messages.Create(ctx, msg); err != nil {
			return fmt.Errorf("%w: store message: %v", ErrBackendUnavailable, err)
		}
		result = &SendResult{MessageID: msg.ID, Remaining: decision.Remaining, ResetAt: decision.ResetAt}
		return nil
	}

	if p.Locker != nil {
		err = p.Locker.Run(ctx, fp, store)
	} else {
		err = store(ctx)
	}
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			logger.Info("intake: sender rate limited", "recipient_id", recipient.ID)
		}
		return nil, err
	}

	logger.Info("intake: message accepted",
		"recipient_id", recipient.ID,
		"message_id", msg.ID,
		"source_platform", clientCtx.SourcePlatform,
		"remaining", result.Remaining,
	)

	if p.Notifier != nil && recipient.NotificationsEnabled() {
		p.Notifier.Notify(ctx, domain.NewMessageNotification{
			RecipientID:      recipient.ID,
			MessageID:        msg.ID,
			Preview:          Preview(content),
			ReferrerPlatform: clientCtx.SourcePlatform,
			DeviceType:       string(clientCtx.Device.Type),
			CreatedAt:        msg.CreatedAt,
		})
	}
	return result, nil
}

// ValidateContent trims content and checks its length in characters.
func ValidateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	n := utf8.RuneCountInString(content)
	switch {
	case n < domain.MessageMinLength:
		return "", fmt.Errorf("%w: message cannot be empty", ErrValidation)
	case n > domain.MessageMaxLength:
		return "", fmt.Errorf("%w: message must be at most %d characters", ErrValidation, domain.MessageMaxLength)
	}
	return content, nil
}

// Preview truncates content for a notification body.
func Preview(content string) string {
	if utf8.RuneCountInString(content) <= PreviewLength {
		return content
	}
	runes := []rune(content)
	return strings.TrimSpace(string(runes[:PreviewLength-1])) + "…"
}
