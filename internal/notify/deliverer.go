package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/ratelimit"

	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/pkg/logger"
)

// Profiles resolves the recipient at delivery time so preference changes
// made after the send are honoured.
type Profiles interface {
	ByID(ctx context.Context, id string) (*domain.Profile, error)
}

// Subscriptions lists and prunes push endpoints.
type Subscriptions interface {
	ListByProfile(ctx context.Context, profileID string) ([]domain.PushSubscription, error)
	DeleteEndpoints(ctx context.Context, endpoints []string) (int, error)
}

// PushPayload is the JSON the service worker receives.
type PushPayload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	MessageID string `json:"message_id"`
	URL       string `json:"url,omitempty"`
}

// Report summarises one delivery.
type Report struct {
	PushSent   int
	PushFailed int
	Expired    int
	EmailSent  bool
	Skipped    bool
}

// Deliverer fans one notification out to the recipient's channels.
type Deliverer struct {
	profiles     Profiles
	subs         Subscriptions
	renderer     *Renderer
	push         PushSender
	email        EmailSender
	pace         ratelimit.Limiter
	dashboardURL string
}

// NewDeliverer wires the channels. push and email may be nil to disable
// that channel. ratePerSecond paces push requests across all deliveries
// sharing this Deliverer; zero means unpaced.
func NewDeliverer(profiles Profiles, subs Subscriptions, renderer *Renderer, push PushSender, email EmailSender, ratePerSecond int, dashboardURL string) *Deliverer {
	pace := ratelimit.NewUnlimited()
	if ratePerSecond > 0 {
		pace = ratelimit.New(ratePerSecond)
	}
	return &Deliverer{
		profiles:     profiles,
		subs:         subs,
		renderer:     renderer,
		push:         push,
		email:        email,
		pace:         pace,
		dashboardURL: dashboardURL,
	}
}

// Deliver sends n on every enabled channel. Per-endpoint failures are logged
// and counted; an error is returned only when the recipient or their
// subscriptions cannot be loaded, so a queue consumer can retry.
func (d *Deliverer) Deliver(ctx context.Context, n domain.NewMessageNotification) (Report, error) {
	var rep Report

	p, err := d.profiles.ByID(ctx, n.RecipientID)
	if err != nil {
		return rep, fmt.Errorf("load recipient: %w", err)
	}
	if !p.NotificationsEnabled() {
		rep.Skipped = true
		return rep, nil
	}

	text, err := d.renderer.Render(n, p)
	if err != nil {
		return rep, err
	}

	if p.PushEnabled && d.push != nil {
		if err := d.deliverPush(ctx, p, n, text, &rep); err != nil {
			return rep, err
		}
	}

	if p.EmailEnabled && d.email != nil && p.Email != "" {
		if err := d.email.Send(ctx, p.Email, text.EmailSubject, text.EmailBody); err != nil {
			logger.Warn("notify: email failed", "recipient_id", p.ID, "email", p.Email, "error", err)
		} else {
			rep.EmailSent = true
		}
	}

	logger.Debug("notify: delivered",
		"recipient_id", p.ID, "message_id", n.MessageID,
		"push_sent", rep.PushSent, "push_failed", rep.PushFailed, "expired", rep.Expired, "mailed", rep.EmailSent)
	return rep, nil
}

func (d *Deliverer) deliverPush(ctx context.Context, p *domain.Profile, n domain.NewMessageNotification, text Rendered, rep *Report) error {
	subs, err := d.subs.ListByProfile(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	payload, err := json.Marshal(PushPayload{
		Title:     text.Title,
		Body:      text.Body,
		MessageID: n.MessageID,
		URL:       d.dashboardURL,
	})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	var expired []string
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		d.pace.Take()
		err := d.push.Send(ctx, sub, payload)
		switch {
		case err == nil:
			rep.PushSent++
		case errors.Is(err, ErrSubscriptionExpired):
			expired = append(expired, sub.Endpoint)
		default:
			rep.PushFailed++
			logger.Warn("notify: push failed", "recipient_id", p.ID, "subscription_id", sub.ID, "error", err)
		}
	}

	if len(expired) > 0 {
		pruned, err := d.subs.DeleteEndpoints(ctx, expired)
		if err != nil {
			logger.Warn("notify: prune expired subscriptions failed", "recipient_id", p.ID, "error", err)
		}
		rep.Expired = pruned
	}
	return nil
}
