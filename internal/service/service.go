// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the storage layer.
//
// Every operation that can change the confirmed count of an event runs inside
// ports.Store.LockEvent. The count is read there, exactly once, so a decision
// and the write it justifies happen under the same lock.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service/ports"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// Routing keys for lifecycle notifications.
const (
	KeyEventPublished   = "event.published"
	KeyEventCanceled    = "event.canceled"
	KeyRequestCreated   = "request.created"
	KeyRequestConfirmed = "request.confirmed"
	KeyRequestRejected  = "request.rejected"
	KeyRequestCanceled  = "request.canceled"
)

// core is shared by EventService and RequestService.
type core struct {
	store    ports.Store
	notifier ports.Notifier
	log      *slog.Logger
	retry    RetryPolicy
	now      func() time.Time
	newID    func() string
}

// Option customises a service.
type Option func(*core)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *core) { c.now = now }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(newID func() string) Option {
	return func(c *core) { c.newID = newID }
}

// WithRetry sets how transient storage errors are retried.
func WithRetry(p RetryPolicy) Option {
	return func(c *core) { c.retry = p }
}

// WithNotifier sets the lifecycle message publisher.
func WithNotifier(n ports.Notifier) Option {
	return func(c *core) { c.notifier = n }
}

func newCore(store ports.Store, log *slog.Logger, opts []Option) core {
	c := core{
		store:    store,
		notifier: nopNotifier{},
		log:      log,
		retry:    DefaultRetry,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// withEventLock runs fn under the event's capacity lock, retrying lock
// contention. fn may run more than once and must reset anything it captures.
func (c *core) withEventLock(ctx context.Context, eventID string, fn ports.LockedFunc) error {
	attempt := 0
	return retry.Do(ctx, c.retry.backoff(), func(ctx context.Context) error {
		attempt++
		err := c.store.LockEvent(ctx, eventID, fn)
		if isTransient(err) {
			c.log.WarnContext(ctx, "event lock contention",
				slog.String("event_id", eventID),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			return retry.RetryableError(err)
		}
		return err
	})
}

// publish sends a notification after the change has committed. Failures are
// logged and never reach the caller.
func (c *core) publish(ctx context.Context, key string, payload any) {
	if err := c.notifier.Publish(ctx, key, payload); err != nil {
		c.log.ErrorContext(ctx, "publish notification",
			slog.String("routing_key", key),
			slog.Any("error", err),
		)
	}
}

func isTransient(err error) bool {
	return errors.Is(err, model.ErrTransient)
}

// confirmedCount is the only place a capacity decision reads the number of
// confirmed requests. Callers hold the event lock.
func confirmedCount(ctx context.Context, tx ports.Tx, eventID string) (int, error) {
	n, err := tx.Requests().CountConfirmed(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("count confirmed requests: %w", err)
	}
	return n, nil
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, string, any) error { return nil }
