package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/pkg/logger"
)

// Inline delivers on a detached goroutine bounded by timeout.
type Inline struct {
	deliverer *Deliverer
	timeout   time.Duration
}

// NewInline creates the in-process dispatcher.
func NewInline(d *Deliverer, timeout time.Duration) *Inline {
	return &Inline{deliverer: d, timeout: timeout}
}

func (i *Inline) Notify(ctx context.Context, n domain.NewMessageNotification) {
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
		defer cancel()
		if _, err := i.deliverer.Deliver(ctx, n); err != nil {
			logger.Warn("notify: inline delivery failed", "message_id", n.MessageID, "error", err)
		}
	}()
}

// SQSAPI is the part of the SQS client the publisher and consumer use.
type SQSAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Publisher enqueues notifications for cmd/worker.
type Publisher struct {
	client   SQSAPI
	queueURL string
	timeout  time.Duration
}

// NewPublisher creates an SQS-backed dispatcher.
func NewPublisher(client SQSAPI, queueURL string, timeout time.Duration) *Publisher {
	return &Publisher{client: client, queueURL: queueURL, timeout: timeout}
}

func (p *Publisher) Notify(ctx context.Context, n domain.NewMessageNotification) {
	body, err := json.Marshal(n)
	if err != nil {
		logger.Error("notify: marshal job", "message_id", n.MessageID, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.queueURL),
			MessageBody: aws.String(string(body)),
		})
		if err != nil {
			logger.Warn("notify: enqueue failed", "message_id", n.MessageID, "error", err)
		}
	}()
}

// Disabled drops every notification.
type Disabled struct{}

func (Disabled) Notify(context.Context, domain.NewMessageNotification) {}
