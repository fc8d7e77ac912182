package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-participation/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ids(reqs []*model.Request) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.ID
	}
	return out
}

func TestSubmit_UnlimitedAutoConfirms(t *testing.T) {
	f := newFixture(t)
	eventID := f.publishedEvent(t, 0, true)

	r := f.submit(t, "u1", eventID)

	assert.Equal(t, model.RequestConfirmed, r.Status)
	assert.Equal(t, eventID, r.EventID)
	assert.Equal(t, "u1", r.RequesterID)
	assert.Equal(t, testNow, r.Created)
}

func TestSubmit_UnmoderatedAutoConfirms(t *testing.T) {
	f := newFixture(t)
	eventID := f.publishedEvent(t, 2, false)

	assert.Equal(t, model.RequestConfirmed, f.submit(t, "u1", eventID).Status)
	assert.Equal(t, model.RequestConfirmed, f.submit(t, "u2", eventID).Status)

	_, err := f.requests.Submit(context.Background(), "u3", eventID)
	assert.ErrorIs(t, err, model.ErrParticipantLimit)
}

func TestSubmit_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.events.Create(ctx, owner, newEventInput(5, true))
	require.NoError(t, err)
	_, err = f.requests.Submit(ctx, "u1", draft.ID)
	assert.ErrorIs(t, err, model.ErrEventNotPublished)

	eventID := f.publishedEvent(t, 5, true)
	_, err = f.requests.Submit(ctx, owner, eventID)
	assert.ErrorIs(t, err, model.ErrInitiatorRequest)

	f.submit(t, "u1", eventID)
	_, err = f.requests.Submit(ctx, "u1", eventID)
	assert.ErrorIs(t, err, model.ErrAlreadyRequested)
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = f.requests.Submit(ctx, "u1", "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSubmit_FullEventRejectsPending(t *testing.T) {
	f := newFixture(t)
	eventID := f.publishedEvent(t, 1, true)
	r1 := f.submit(t, "u1", eventID)
	_, err := f.requests.BatchUpdateStatus(context.Background(), owner, eventID, []string{r1.ID}, model.RequestConfirmed)
	require.NoError(t, err)

	_, err = f.requests.Submit(context.Background(), "u2", eventID)
	assert.ErrorIs(t, err, model.ErrParticipantLimit)
}

func TestSubmit_ResubmitAfterRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eventID := f.publishedEvent(t, 3, true)

	r1 := f.submit(t, "u1", eventID)
	_, err := f.requests.BatchUpdateStatus(ctx, owner, eventID, []string{r1.ID}, model.RequestRejected)
	require.NoError(t, err)

	r2 := f.submit(t, "u1", eventID)
	assert.NotEqual(t, r1.ID, r2.ID)
	assert.Equal(t, model.RequestPending, r2.Status)
}

func TestSubmit_ResubmitAfterCanceled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eventID := f.publishedEvent(t, 3, true)

	r1 := f.submit(t, "u1", eventID)
	_, err := f.requests.Cancel(ctx, "u1", r1.ID)
	require.NoError(t, err)

	f.submit(t, "u1", eventID)
}

func TestSubmit_PublishesNotification(t *testing.T) {
	store := memory.New()
	notifier := mocks.NewNotifier(t)
	views := mocks.NewViewCounter(t)
	views.On("Views", mock.Anything, mock.Anything).Return(map[string]int64{}, nil).Maybe()
	notifier.On("Publish", mock.Anything, KeyEventPublished, mock.Anything).Return(nil).Once()
	notifier.On("Publish", mock.Anything, KeyRequestCreated, mock.MatchedBy(func(r *model.Request) bool {
		return r.RequesterID == "u1"
	})).Return(errors.New("broker down")).Once()

	opts := testOptions(notifier)
	events := NewEventService(store, views, newTestLogger(), opts...)
	requests := NewRequestService(store, newTestLogger(), opts...)
	ctx := context.Background()

	v, err := events.Create(ctx, owner, newEventInput(0, false))
	require.NoError(t, err)
	_, err = events.AdminTransition(ctx, v.ID, model.AdminPublish)
	require.NoError(t, err)

	r, err := requests.Submit(ctx, "u1", v.ID)
	require.NoError(t, err, "a failed notification must not fail the operation")
	assert.Equal(t, model.RequestConfirmed, r.Status)
}

func TestCancel_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eventID := f.publishedEvent(t, 3, true)
	r := f.submit(t, "u1", eventID)

	first, err := f.requests.Cancel(ctx, "u1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestCanceled, first.Status)

	second, err := f.requests.Cancel(ctx, "u1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestCanceled, second.Status)
	assert.Equal(t, first.ID, second.ID)
}

func TestCancel_OtherUserSeesNotFound(t *testing.T) {
	f := newFixture(t)
	eventID := f.publishedEvent(t, 3, true)
	r := f.submit(t, "u1", eventID)

	_, err := f.requests.Cancel(context.Background(), "u2", r.ID)
	assert.ErrorIs(t, err, model.ErrRequestNotFound)

	_, err = f.requests.Cancel(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, model.ErrRequestNotFound)
}

func TestCancel_ConfirmedFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eventID := f.publishedEvent(t, 1, false)

	r1 := f.submit(t, "u1", eventID)
	require.Equal(t, model.RequestConfirmed, r1.Status)
	_, err := f.requests.Submit(ctx, "u2", eventID)
	require.ErrorIs(t, err, model.ErrParticipantLimit)

	_, err = f.requests.Cancel(ctx, "u1", r1.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.confirmedCount(t, eventID))

	assert.Equal(t, model.RequestConfirmed, f.submit(t, "u2", eventID).Status)
}

func TestCancel_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eventID := f.publishedEvent(t, 2, true)
	r1 := f.submit(t, "u1", eventID)

	_, err := f.requests.BatchUpdateStatus(ctx, owner, eventID, []string{r1.ID}, model.RequestRejected)
	require.NoError(t, err)

	canceled, err := f.requests.Cancel(ctx, "u1", r1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestCanceled, canceled.Status)

	stored, err := f.store.Requests().GetByID(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestCanceled, stored.Status)
	assert.Equal(t, 0, f.confirmedCount(t, eventID))
}

// Two pending requests fit a limit of two and are confirmed in one batch.
func TestBatch_ConfirmAllWithinCapacity(t *testing.T) {
	f := newFixture(t)
	eventID := f.publishedEvent(t, 2, true)
	r1 := f.submit(t, "u1", eventID)
	r2 := f.submit(t, "u2", eventID)

	res, err := f.requests.BatchUpdateStatus(context.Background(), owner, eventID, []string{r1.ID, r2.ID}, model.RequestConfirmed)
	require.NoError(t, err)

	assert.Equal(t, []string{r1.ID, r2.ID}, ids(res.Confirmed))
	assert.Empty(t, res.Rejected)
	assert.Equal(t, 2, f.confirmedCount(t, eventID))
}

// A full event refuses further confirmations and changes nothing.
func TestBatch_NoFreeSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eventID := f.publishedEvent(t, 2, true)
	r1 := f.submit(t, "u1", eventID)
	r2 := f.submit(t, "u2", eventID)
	r3 := f.submit(t, "u3", eventID)
	_, err := f.requests.BatchUpdateStatus(ctx, owner, eventID, []string{r1.ID, r2.ID}, model.RequestConfirmed)
	require.NoError(t, err)

	_, err = f.requests.BatchUpdateStatus(ctx, owner, eventID, []string{r3.ID}, model.RequestConfirmed)
	assert.ErrorIs(t, err, model.ErrParticipantLimit)

	got, err := f.store.Requests().GetByID(ctx, r3.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, got.Status)
	assert.Equal(t, 2, f.confirmedCount(t, eventID))
}

// With one free slot the first request in the batch is confirmed and the
// second rejected.
func TestBatch_PartialConfirmFollowsCallerOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eventID := f.publishedEvent(t, 3, true)
	r1 := f.submit(t, "u1", eventID)
	r2 := f.submit(t, "u2", eventID)
	r3 := f.submit(t, "u3", eventID)
	r4 := f.submit(t, "u4", eventID)
	_, err := f.requests.BatchUpdateStatus(ctx, owner, eventID, []string{r1.ID, r2.ID}, model.RequestConfirmed)
	require.NoError(t, err)

	res, err := f.requests.BatchUpdateStatus(ctx, owner, eventID, []string{r3.ID, r4.ID}, model.RequestConfirmed)
	require.NoError(t, err)
	assert.Equal(t, []string{r3.ID}, ids(res.Confirmed))
	assert.Equal(t, []string{r4.ID}, ids(res.Rejected))

	got, err := f.store.Requests().GetByID(ctx, r4.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestRejected, got.Status)
	assert.Equal(t, 3, f.confirmedCount(t, eventID))
}

func TestBatch_RejectAll(t *testing.T) {
	f := newFixture(t)
	eventID := f.publishedEvent(t, 1, true)
	r1 := f.submit(t, "u1", eventID)
	r2 := f.submit(t, "u2", eventID)

	res, err := f.requests.BatchUpdateStatus(context.Background(), owner, eventID, []string{r2.ID, r1.ID}, model.RequestRejected)
	require.NoError(t, err)
	assert.Empty(t, res.Confirmed)
	assert.NotNil(t, res.Confirmed)
	assert.Equal(t, []string{r2.ID, r1.ID}, ids(res.Rejected))
	assert.Equal(t, 0, f.confirmedCount(t, eventID))
}

func TestBatch_DuplicateIDsCountOnce(t *testing.T) {
	f := newFixture(t)
	eventID := f.publishedEvent(t, 1, true)
	r1 := f.submit(t, "u1", eventID)
	r2 := f.submit(t, "u2", eventID)

	res, err := f.requests.BatchUpdateStatus(context.Background(), owner, eventID,
		[]string{r1.ID, r1.ID, r2.ID}, model.RequestConfirmed)
	require.NoError(t, err)
	assert.Equal(t, []string{r1.ID}, ids(res.Confirmed))
	assert.Equal(t, []string{r2.ID}, ids(res.Rejected))
}

func TestBatch_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	moderated := f.publishedEvent(t, 2, true)
	r1 := f.submit(t, "u1", moderated)

	_, err := f.requests.BatchUpdateStatus(ctx, "stranger", moderated, []string{r1.ID}, model.RequestConfirmed)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.requests.BatchUpdateStatus(ctx, owner, moderated, []string{r1.ID}, model.RequestCanceled)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.requests.BatchUpdateStatus(ctx, owner, moderated, nil, model.RequestConfirmed)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.requests.BatchUpdateStatus(ctx, owner, moderated, []string{"missing"}, model.RequestConfirmed)
	assert.ErrorIs(t, err, model.ErrNotFound)

	unmoderated := f.publishedEvent(t, 2, false)
	_, err = f.requests.BatchUpdateStatus(ctx, owner, unmoderated, []string{r1.ID}, model.RequestConfirmed)
	assert.ErrorIs(t, err, model.ErrModerationNotRequired)

	unlimited := f.publishedEvent(t, 0, true)
	_, err = f.requests.BatchUpdateStatus(ctx, owner, unlimited, []string{r1.ID}, model.RequestConfirmed)
	assert.ErrorIs(t, err, model.ErrModerationNotRequired)

	other := f.publishedEvent(t, 2, true)
	_, err = f.requests.BatchUpdateStatus(ctx, owner, other, []string{r1.ID}, model.RequestConfirmed)
	assert.ErrorIs(t, err, model.ErrRequestNotFound, "request of another event")

	_, err = f.requests.BatchUpdateStatus(ctx, owner, moderated, []string{r1.ID}, model.RequestConfirmed)
	require.NoError(t, err)
	_, err = f.requests.BatchUpdateStatus(ctx, owner, moderated, []string{r1.ID}, model.RequestRejected)
	assert.ErrorIs(t, err, model.ErrRequestNotPending)
}

func TestBatch_NotPendingLeavesBatchUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eventID := f.publishedEvent(t, 3, true)
	r1 := f.submit(t, "u1", eventID)
	r2 := f.submit(t, "u2", eventID)
	_, err := f.requests.Cancel(ctx, "u2", r2.ID)
	require.NoError(t, err)

	_, err = f.requests.BatchUpdateStatus(ctx, owner, eventID, []string{r1.ID, r2.ID}, model.RequestConfirmed)
	assert.ErrorIs(t, err, model.ErrConflict)

	got, err := f.store.Requests().GetByID(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, got.Status)
}

func TestSubmit_ConcurrentNeverOverfills(t *testing.T) {
	f := newFixture(t)
	const limit = 5
	eventID := f.publishedEvent(t, limit, false)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		confirmed int
		full      int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := f.requests.Submit(context.Background(), fmt.Sprintf("u%d", i), eventID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && r.Status == model.RequestConfirmed:
				confirmed++
			case errors.Is(err, model.ErrParticipantLimit):
				full++
			default:
				t.Errorf("unexpected result: %v %v", r, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, limit, confirmed)
	assert.Equal(t, 50-limit, full)
	assert.Equal(t, limit, f.confirmedCount(t, eventID))
}

func TestBatch_ConcurrentNeverOverfills(t *testing.T) {
	f := newFixture(t)
	const limit = 3
	eventID := f.publishedEvent(t, limit, true)

	var all []string
	for i := 0; i < 10; i++ {
		all = append(all, f.submit(t, fmt.Sprintf("u%d", i), eventID).ID)
	}

	var wg sync.WaitGroup
	for _, batch := range [][]string{all[:5], all[5:]} {
		wg.Add(1)
		go func(batch []string) {
			defer wg.Done()
			_, err := f.requests.BatchUpdateStatus(context.Background(), owner, eventID, batch, model.RequestConfirmed)
			if err != nil {
				assert.ErrorIs(t, err, model.ErrParticipantLimit)
			}
		}(batch)
	}
	wg.Wait()

	assert.Equal(t, limit, f.confirmedCount(t, eventID))
}

func TestListForEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eventID := f.publishedEvent(t, 3, true)
	f.submit(t, "u1", eventID)
	f.submit(t, "u2", eventID)

	reqs, err := f.requests.ListForEvent(ctx, owner, eventID)
	require.NoError(t, err)
	assert.Len(t, reqs, 2)

	_, err = f.requests.ListForEvent(ctx, "u1", eventID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	mine, err := f.requests.ListByRequester(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, eventID, mine[0].EventID)
}
