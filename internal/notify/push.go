package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/ignite/whisperbox/internal/config"
	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/pkg/httpretry"
)

// ErrSubscriptionExpired is returned when the push service no longer knows
// the endpoint (404 or 410). The subscription should be deleted.
var ErrSubscriptionExpired = errors.New("push subscription expired")

// PushSender delivers one encrypted payload to one subscription.
type PushSender interface {
	Send(ctx context.Context, sub domain.PushSubscription, payload []byte) error
}

// WebPushSender implements PushSender with VAPID-signed Web Push.
type WebPushSender struct {
	client     webpush.HTTPClient
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
}

// NewWebPushSender builds a sender whose requests go through a retrying client.
func NewWebPushSender(cfg config.PushConfig, client httpretry.HTTPDoer) *WebPushSender {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	return &WebPushSender{
		client:     httpretry.NewRetryClient(client, cfg.MaxRetries),
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		subscriber: cfg.Subscriber,
		ttl:        cfg.TTLSeconds,
	}
}

func (s *WebPushSender) Send(ctx context.Context, sub domain.PushSubscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{Auth: sub.Auth, P256dh: sub.P256dh},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             s.ttl,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("web push: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionExpired
	case resp.StatusCode >= 300:
		return fmt.Errorf("web push: status %d", resp.StatusCode)
	}
	return nil
}
