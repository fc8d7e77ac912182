package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(url string) *Client {
	c := NewClient(url, "event-participation", time.Second)
	c.now = func() time.Time { return testNow }
	return c
}

func TestRecordHit(t *testing.T) {
	var got Hit
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/hit", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).RecordHit(context.Background(), "/events/e1", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, Hit{
		App:       "event-participation",
		URI:       "/events/e1",
		IP:        "10.0.0.1",
		Timestamp: "2026-06-01 12:00:00",
	}, got)
}

func TestRecordHit_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, newTestClient(srv.URL).RecordHit(context.Background(), "/events/e1", "10.0.0.1"))
}

func TestViews(t *testing.T) {
	published := testNow.Add(-48 * time.Hour)
	events := []*model.Event{
		{ID: "e1", State: model.EventPublished, PublishedOn: &published},
		{ID: "e2", State: model.EventPublished, PublishedOn: &published},
		{ID: "e3", State: model.EventPending},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/stats", r.URL.Path)
		assert.Equal(t, "2026-05-30 11:00:00", q.Get("start"))
		assert.Equal(t, "2026-06-01 12:00:00", q.Get("end"))
		assert.Equal(t, "/events/e1,/events/e2", q.Get("uris"))
		assert.Equal(t, "true", q.Get("unique"))
		_ = json.NewEncoder(w).Encode([]ViewStats{
			{App: "event-participation", URI: "/events/e1", Hits: 7},
			{App: "event-participation", URI: "/other", Hits: 100},
		})
	}))
	defer srv.Close()

	views, err := newTestClient(srv.URL).Views(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"e1": 7}, views)
}

func TestViews_NothingPublishedSkipsCall(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0")
	views, err := c.Views(context.Background(), []*model.Event{{ID: "e1", State: model.EventPending}})
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestViews_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	published := testNow
	_, err := newTestClient(srv.URL).Views(context.Background(),
		[]*model.Event{{ID: "e1", State: model.EventPublished, PublishedOn: &published}})
	assert.Error(t, err)
}
