package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/whisperbox/internal/config"
	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/pkg/logger"
)

// Consumer long-polls the notification queue and delivers each job.
// Jobs that fail delivery are left on the queue and reappear after the
// visibility timeout; undecodable jobs are deleted.
type Consumer struct {
	client    SQSAPI
	deliverer *Deliverer
	cfg       config.SQSConfig
	timeout   time.Duration
	backoff   time.Duration
}

// NewConsumer creates a queue consumer. timeout bounds one delivery.
func NewConsumer(client SQSAPI, d *Deliverer, cfg config.SQSConfig, timeout time.Duration) *Consumer {
	return &Consumer{client: client, deliverer: d, cfg: cfg, timeout: timeout, backoff: 5 * time.Second}
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	logger.Info("notify: consumer started", "queue", c.cfg.QueueURL)
	for ctx.Err() == nil {
		n, err := c.PollOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warn("notify: receive failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.backoff):
			}
			continue
		}
		if n > 0 {
			logger.Debug("notify: batch handled", "count", n)
		}
	}
	logger.Info("notify: consumer stopped")
}

// PollOnce receives one batch and handles it. It returns the number of
// messages received.
func (c *Consumer) PollOnce(ctx context.Context) (int, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.cfg.QueueURL),
		MaxNumberOfMessages: int32(c.cfg.MaxMessages),
		WaitTimeSeconds:     int32(c.cfg.WaitTimeSeconds),
		VisibilityTimeout:   int32(c.cfg.VisibilityTimeout),
	})
	if err != nil {
		return 0, err
	}

	for _, msg := range out.Messages {
		var n domain.NewMessageNotification
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &n); err != nil || n.RecipientID == "" {
			logger.Warn("notify: dropping malformed job", "message_id", aws.ToString(msg.MessageId))
			c.delete(ctx, msg.ReceiptHandle)
			continue
		}

		dctx, cancel := context.WithTimeout(ctx, c.timeout)
		_, err := c.deliverer.Deliver(dctx, n)
		cancel()
		if err != nil {
			logger.Warn("notify: delivery failed, will retry", "message_id", n.MessageID, "error", err)
			continue
		}
		c.delete(ctx, msg.ReceiptHandle)
	}
	return len(out.Messages), nil
}

func (c *Consumer) delete(ctx context.Context, handle *string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.cfg.QueueURL),
		ReceiptHandle: handle,
	})
	if err != nil {
		logger.Warn("notify: delete job failed", "error", err)
	}
}
