package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/google/uuid"
)

// Sender delivers one rendered email and returns the provider message id.
// The real provider integration lives outside this system.
type Sender interface {
	Send(ctx context.Context, to, subject, html, text string) (string, error)
}

// LogSender stands in where no provider is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, html, text string) (string, error) {
	log.Printf("email out: to=%s subject=%q", to, subject)
	return "local-" + uuid.NewString(), nil
}

const (
	retryCooldown = 5 * time.Minute
	retryBatch    = 10
)

// EmailWorker consumes email-tasks. The task log is the idempotency guard
// (skip rows already sent) and the retry budget (attempts vs max_attempts);
// handler errors are absorbed so one bad email never blocks the topic.
type EmailWorker struct {
	Logs   LogStore
	Sender Sender
}

func (w *EmailWorker) HandleEmailTask(ctx context.Context, env events.Envelope) error {
	content, known, err := renderEmail(env)
	if !known {
		log.Printf("email worker: unknown task type %s, dropping %s", env.EventType, env.EventID)
		return nil
	}
	if err != nil {
		log.Printf("email worker: drop %s: %v", env.EventID, err)
		return nil
	}

	l, ferr := w.Logs.Find(ctx, env.EventID)
	if ferr != nil && !errors.Is(ferr, ErrLogNotFound) {
		return ferr
	}
	if l != nil && l.Status == EmailSent {
		return nil // already delivered
	}
	if l == nil {
		l = &EmailLog{
			EventID:     env.EventID,
			EventType:   env.EventType,
			Recipient:   content.recipient,
			Subject:     content.subject,
			Status:      EmailPending,
			MaxAttempts: DefaultMaxAttempts,
			Payload:     env.Payload,
		}
	}
	if l.Status == EmailFailed {
		return nil // retry budget spent, terminal
	}

	now := time.Now().UTC()
	l.Attempts++
	l.LastAttemptAt = &now
	l.Status = EmailRetrying
	if err := w.Logs.Save(ctx, l); err != nil {
		return err
	}

	msgID, err := w.Sender.Send(ctx, content.recipient, content.subject, content.html, content.text)
	if err != nil {
		l.Error = err.Error()
		if l.Attempts >= l.MaxAttempts {
			l.Status = EmailFailed
			log.Printf("email worker: %s failed after %d attempts: %v", env.EventID, l.Attempts, err)
		} else {
			l.Status = EmailPending
			log.Printf("email worker: %s attempt %d/%d failed, will retry: %v", env.EventID, l.Attempts, l.MaxAttempts, err)
		}
		if serr := w.Logs.Save(ctx, l); serr != nil {
			log.Printf("email worker: save log %s: %v", env.EventID, serr)
		}
		return nil // retry is the sweep's job, not the broker's
	}

	sent := time.Now().UTC()
	l.Status = EmailSent
	l.MessageID = msgID
	l.SentAt = &sent
	l.Error = ""
	if err := w.Logs.Save(ctx, l); err != nil {
		return err
	}
	log.Printf("email worker: sent %s to %s", env.EventType, content.recipient)
	return nil
}

// RetryPending re-feeds rows stuck in pending past the cool-down back
// through HandleEmailTask, reusing the same bounded-attempt accounting.
func (w *EmailWorker) RetryPending(ctx context.Context) {
	stuck, err := w.Logs.ListRetryable(ctx, time.Now().UTC().Add(-retryCooldown), retryBatch)
	if err != nil {
		log.Printf("email worker: list retryable: %v", err)
		return
	}
	for _, l := range stuck {
		env := events.Envelope{
			EventID:   l.EventID,
			EventType: l.EventType,
			Payload:   l.Payload,
		}
		if err := w.HandleEmailTask(ctx, env); err != nil {
			log.Printf("email worker: retry %s: %v", l.EventID, err)
		}
	}
}

// RunSweeper retries stuck emails on a fixed interval until ctx ends.
func (w *EmailWorker) RunSweeper(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.RetryPending(ctx)
		}
	}
}
