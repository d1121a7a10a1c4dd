package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/whisperbox/internal/config"
	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/pkg/logger"
)

// Dispatcher hands a notification off without waiting for delivery.
type Dispatcher interface {
	Notify(ctx context.Context, n domain.NewMessageNotification)
}

// BuildDeliverer wires the channels enabled in cfg.
func BuildDeliverer(ctx context.Context, cfg config.NotificationsConfig, profiles Profiles, subs Subscriptions) (*Deliverer, error) {
	renderer, err := NewRenderer(cfg.Templates, cfg.DashboardURL)
	if err != nil {
		return nil, err
	}

	var push PushSender
	if cfg.Push.Enabled() {
		push = NewWebPushSender(cfg.Push, nil)
	} else {
		logger.Warn("notify: VAPID keys not configured, push channel disabled")
	}

	var email EmailSender
	if cfg.Email.Enabled {
		awsCfg, err := LoadAWSConfig(ctx, cfg.Email.Region, cfg.Email.AccessKey, cfg.Email.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("ses config: %w", err)
		}
		email = NewSESEmailSender(sesv2.NewFromConfig(awsCfg), cfg.Email.FromAddress)
	}

	return NewDeliverer(profiles, subs, renderer, push, email, cfg.Push.RatePerSecond, cfg.DashboardURL), nil
}

// NewSQSClient builds the queue client from cfg.
func NewSQSClient(ctx context.Context, cfg config.SQSConfig) (*sqs.Client, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg.Region, cfg.AccessKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("sqs config: %w", err)
	}
	return sqs.NewFromConfig(awsCfg), nil
}

// NewDispatcher selects the dispatch mode. Inline mode delivers from the
// API process through d; SQS mode only needs the queue.
func NewDispatcher(ctx context.Context, cfg config.NotificationsConfig, d *Deliverer) (Dispatcher, error) {
	switch cfg.Mode {
	case config.NotifyDisabled:
		return Disabled{}, nil
	case config.NotifySQS:
		client, err := NewSQSClient(ctx, cfg.SQS)
		if err != nil {
			return nil, err
		}
		return NewPublisher(client, cfg.SQS.QueueURL, cfg.DispatchTimeout()), nil
	default:
		return NewInline(d, cfg.DispatchTimeout()), nil
	}
}
