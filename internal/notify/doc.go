// Package notify delivers new-message alerts to recipients.
//
// The send path only ever sees a Dispatcher, which hands the alert off
// without waiting: inline mode runs delivery on a detached goroutine, SQS
// mode enqueues a job for cmd/worker, and disabled mode drops it. Delivery
// itself (Deliverer) renders liquid templates, pushes to every registered
// Web Push subscription and optionally sends an SES email. Subscriptions the
// push service reports as gone are pruned after each batch.
package notify
