package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogStore struct {
	logs map[string]*EmailLog
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{logs: map[string]*EmailLog{}}
}

func (f *fakeLogStore) Find(_ context.Context, eventID string) (*EmailLog, error) {
	l, ok := f.logs[eventID]
	if !ok {
		return nil, ErrLogNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLogStore) Save(_ context.Context, l *EmailLog) error {
	cp := *l
	f.logs[l.EventID] = &cp
	return nil
}

func (f *fakeLogStore) ListRetryable(_ context.Context, olderThan time.Time, limit int) ([]EmailLog, error) {
	var out []EmailLog
	for _, l := range f.logs {
		if l.Status == EmailPending && l.Attempts > 0 && l.Attempts < l.MaxAttempts &&
			l.LastAttemptAt != nil && l.LastAttemptAt.Before(olderThan) {
			out = append(out, *l)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeSender struct {
	failures int // fail this many sends before succeeding
	sent     []string
}

func (f *fakeSender) Send(_ context.Context, to, subject, html, text string) (string, error) {
	if f.failures > 0 {
		f.failures--
		return "", errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, to)
	return "msg-1", nil
}

func welcomeEnvelope() events.Envelope {
	return events.New(events.TaskWelcomeEmail, "auth-api", "user-1", events.WelcomeEmailPayload{
		Email: "new@example.com",
		Name:  "Pat",
	})
}

func TestEmailSentFirstTry(t *testing.T) {
	logs, sender := newFakeLogStore(), &fakeSender{}
	w := &EmailWorker{Logs: logs, Sender: sender}

	env := welcomeEnvelope()
	require.NoError(t, w.HandleEmailTask(context.Background(), env))

	assert.Equal(t, []string{"new@example.com"}, sender.sent)
	l := logs.logs[env.EventID]
	require.NotNil(t, l)
	assert.Equal(t, EmailSent, l.Status)
	assert.Equal(t, 1, l.Attempts)
	assert.Equal(t, "msg-1", l.MessageID)
	require.NotNil(t, l.SentAt)
}

func TestEmailRedeliveryAfterSentIsNoOp(t *testing.T) {
	logs, sender := newFakeLogStore(), &fakeSender{}
	w := &EmailWorker{Logs: logs, Sender: sender}

	env := welcomeEnvelope()
	require.NoError(t, w.HandleEmailTask(context.Background(), env))
	require.NoError(t, w.HandleEmailTask(context.Background(), env))

	assert.Len(t, sender.sent, 1, "no double send on broker redelivery")
	assert.Equal(t, 1, logs.logs[env.EventID].Attempts)
}

func TestEmailRetriesThenSucceeds(t *testing.T) {
	logs, sender := newFakeLogStore(), &fakeSender{failures: 2}
	w := &EmailWorker{Logs: logs, Sender: sender}

	env := welcomeEnvelope()
	require.NoError(t, w.HandleEmailTask(context.Background(), env))
	assert.Equal(t, EmailPending, logs.logs[env.EventID].Status)

	require.NoError(t, w.HandleEmailTask(context.Background(), env))
	require.NoError(t, w.HandleEmailTask(context.Background(), env))

	l := logs.logs[env.EventID]
	assert.Equal(t, EmailSent, l.Status)
	assert.Equal(t, 3, l.Attempts)
	assert.Empty(t, l.Error)
}

func TestEmailFailsTerminallyAfterMaxAttempts(t *testing.T) {
	logs, sender := newFakeLogStore(), &fakeSender{failures: 100}
	w := &EmailWorker{Logs: logs, Sender: sender}

	env := welcomeEnvelope()
	for i := 0; i < DefaultMaxAttempts; i++ {
		require.NoError(t, w.HandleEmailTask(context.Background(), env), "send failure is not a broker error")
	}

	l := logs.logs[env.EventID]
	assert.Equal(t, EmailFailed, l.Status)
	assert.Equal(t, DefaultMaxAttempts, l.Attempts)
	assert.NotEmpty(t, l.Error)

	// further deliveries must not revive a terminal failure
	require.NoError(t, w.HandleEmailTask(context.Background(), env))
	assert.Equal(t, DefaultMaxAttempts, logs.logs[env.EventID].Attempts)
}

func TestEmailUnknownTaskTypeDropped(t *testing.T) {
	logs, sender := newFakeLogStore(), &fakeSender{}
	w := &EmailWorker{Logs: logs, Sender: sender}

	env := events.New("send-carrier-pigeon", "nowhere", "u1", events.WelcomeEmailPayload{Email: "a@b.c"})
	require.NoError(t, w.HandleEmailTask(context.Background(), env))
	assert.Empty(t, logs.logs)
	assert.Empty(t, sender.sent)
}

func TestEmailMissingRecipientDropped(t *testing.T) {
	logs, sender := newFakeLogStore(), &fakeSender{}
	w := &EmailWorker{Logs: logs, Sender: sender}

	env := events.New(events.TaskLoyaltyCouponEmail, "coupon-api", "o1", events.LoyaltyCouponEmailPayload{
		UserID:     "user-1",
		CouponCode: "SAVE10-AAAA1111",
		// no email address resolved
	})
	require.NoError(t, w.HandleEmailTask(context.Background(), env))
	assert.Empty(t, sender.sent)
}

func TestRetryPendingPicksUpStuckEmails(t *testing.T) {
	logs := newFakeLogStore()
	sender := &fakeSender{failures: 1}
	w := &EmailWorker{Logs: logs, Sender: sender}

	env := welcomeEnvelope()
	require.NoError(t, w.HandleEmailTask(context.Background(), env))
	require.Equal(t, EmailPending, logs.logs[env.EventID].Status)

	// age the attempt past the cool-down so the sweep sees it
	old := time.Now().UTC().Add(-10 * time.Minute)
	logs.logs[env.EventID].LastAttemptAt = &old

	w.RetryPending(context.Background())

	l := logs.logs[env.EventID]
	assert.Equal(t, EmailSent, l.Status)
	assert.Equal(t, 2, l.Attempts)
	assert.Equal(t, []string{"new@example.com"}, sender.sent)
}

func TestRetryPendingSkipsFreshAttempts(t *testing.T) {
	logs := newFakeLogStore()
	sender := &fakeSender{failures: 1}
	w := &EmailWorker{Logs: logs, Sender: sender}

	env := welcomeEnvelope()
	require.NoError(t, w.HandleEmailTask(context.Background(), env))

	// last attempt just happened, still inside the cool-down
	w.RetryPending(context.Background())

	assert.Equal(t, EmailPending, logs.logs[env.EventID].Status)
	assert.Equal(t, 1, logs.logs[env.EventID].Attempts)
}
