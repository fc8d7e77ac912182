package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-participation/internal/service/mocks"
	"github.com/Shivanand-hulikatti/event-participation/internal/service/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

const owner = "owner-1"

type fixture struct {
	store    *memory.Store
	events   *EventService
	requests *RequestService
	notifier *mocks.Notifier
	views    *mocks.ViewCounter
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(n ports.Notifier) []Option {
	var seq atomic.Int64
	return []Option{
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string { return fmt.Sprintf("id-%04d", seq.Add(1)) }),
		WithNotifier(n),
		WithRetry(RetryPolicy{Attempts: 3, Delay: time.Millisecond, Backoff: 2}),
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	notifier := mocks.NewNotifier(t)
	notifier.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	views := mocks.NewViewCounter(t)
	views.On("Views", mock.Anything, mock.Anything).Return(map[string]int64{}, nil).Maybe()

	opts := testOptions(notifier)
	return &fixture{
		store:    store,
		events:   NewEventService(store, views, newTestLogger(), opts...),
		requests: NewRequestService(store, newTestLogger(), opts...),
		notifier: notifier,
		views:    views,
	}
}

func newEventInput(limit int, moderation bool) model.NewEvent {
	return model.NewEvent{
		Annotation:        "An evening of Go talks and pizza",
		CategoryID:        1,
		Description:       "Three short talks about concurrency in Go, then questions.",
		EventDate:         testNow.Add(72 * time.Hour),
		LocationID:        1,
		ParticipantLimit:  limit,
		RequestModeration: &moderation,
		Title:             "Go meetup",
	}
}

// publishedEvent creates and publishes an event owned by owner.
func (f *fixture) publishedEvent(t *testing.T, limit int, moderation bool) string {
	t.Helper()
	ctx := context.Background()
	v, err := f.events.Create(ctx, owner, newEventInput(limit, moderation))
	require.NoError(t, err)
	_, err = f.events.AdminTransition(ctx, v.ID, model.AdminPublish)
	require.NoError(t, err)
	return v.ID
}

func (f *fixture) submit(t *testing.T, requester, eventID string) *model.Request {
	t.Helper()
	r, err := f.requests.Submit(context.Background(), requester, eventID)
	require.NoError(t, err)
	return r
}

func (f *fixture) confirmedCount(t *testing.T, eventID string) int {
	t.Helper()
	n, err := f.store.Requests().CountConfirmed(context.Background(), eventID)
	require.NoError(t, err)
	return n
}

// flakyStore fails the first n LockEvent calls with a transient error.
type flakyStore struct {
	*memory.Store
	failures atomic.Int32
}

func (s *flakyStore) LockEvent(ctx context.Context, eventID string, fn ports.LockedFunc) error {
	if s.failures.Add(-1) >= 0 {
		return fmt.Errorf("%w: lock timeout", model.ErrTransient)
	}
	return s.Store.LockEvent(ctx, eventID, fn)
}

func TestWithEventLock_RetriesTransient(t *testing.T) {
	f := newFixture(t)
	eventID := f.publishedEvent(t, 5, true)

	flaky := &flakyStore{Store: f.store}
	flaky.failures.Store(2)
	svc := NewRequestService(flaky, newTestLogger(), testOptions(f.notifier)...)

	r, err := svc.Submit(context.Background(), "u1", eventID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, r.Status)
}

func TestWithEventLock_GivesUpAfterAttempts(t *testing.T) {
	f := newFixture(t)
	eventID := f.publishedEvent(t, 5, true)

	flaky := &flakyStore{Store: f.store}
	flaky.failures.Store(10)
	svc := NewRequestService(flaky, newTestLogger(), testOptions(f.notifier)...)

	_, err := svc.Submit(context.Background(), "u1", eventID)
	assert.ErrorIs(t, err, model.ErrTransient)
	assert.EqualValues(t, 7, flaky.failures.Load(), "three attempts in total")

	reqs, err := f.store.Requests().ListByEvent(context.Background(), eventID)
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestWithEventLock_StopsWhenContextDone(t *testing.T) {
	f := newFixture(t)
	eventID := f.publishedEvent(t, 5, true)

	flaky := &flakyStore{Store: f.store}
	flaky.failures.Store(10)
	opts := append(testOptions(f.notifier), WithRetry(RetryPolicy{Attempts: 5, Delay: time.Hour, Backoff: 1}))
	svc := NewRequestService(flaky, newTestLogger(), opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Submit(ctx, "u1", eventID)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 9, flaky.failures.Load())
}

func TestRetryPolicy_Backoff(t *testing.T) {
	tests := []struct {
		name   string
		policy RetryPolicy
		want   []time.Duration
	}{
		{"exponential", RetryPolicy{Attempts: 4, Delay: 10 * time.Millisecond, Backoff: 2},
			[]time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}},
		{"constant", RetryPolicy{Attempts: 3, Delay: 5 * time.Millisecond, Backoff: 1},
			[]time.Duration{5 * time.Millisecond, 5 * time.Millisecond}},
		{"single attempt", RetryPolicy{Attempts: 1, Delay: time.Second, Backoff: 2}, nil},
		{"zero attempts runs once", RetryPolicy{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.policy.backoff()
			var got []time.Duration
			for {
				d, stop := b.Next()
				if stop {
					break
				}
				got = append(got, d)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
