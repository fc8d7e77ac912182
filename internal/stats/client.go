// Package stats talks to the view statistics service. It records page hits
// and reads unique view counts for published events.
package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// EventURIPrefix is the public path of a single event; hits are keyed by it.
const EventURIPrefix = "/events/"

// Hit is one recorded page view.
type Hit struct {
	App       string `json:"app"`
	URI       string `json:"uri"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

// ViewStats is the hit count for one URI.
type ViewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

// Client implements ports.ViewCounter over HTTP.
type Client struct {
	baseURL string
	app     string
	http    *http.Client
	now     func() time.Time
}

// NewClient constructs a Client for the service at baseURL.
func NewClient(baseURL, app string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		app:     app,
		http:    &http.Client{Timeout: timeout},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RecordHit posts a single page view.
func (c *Client) RecordHit(ctx context.Context, uri, ip string) error {
	body, err := json.Marshal(Hit{
		App:       c.app,
		URI:       uri,
		IP:        ip,
		Timestamp: c.now().Format(model.DateTimeLayout),
	})
	if err != nil {
		return fmt.Errorf("marshal hit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hit", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build hit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post hit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("post hit: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Views returns unique view counts keyed by event id. Only published events
// can have views; the window starts an hour before the earliest publication.
func (c *Client) Views(ctx context.Context, events []*model.Event) (map[string]int64, error) {
	views := make(map[string]int64, len(events))

	var (
		uris  []string
		start time.Time
	)
	for _, e := range events {
		if e.State != model.EventPublished || e.PublishedOn == nil {
			continue
		}
		uris = append(uris, EventURIPrefix+e.ID)
		if start.IsZero() || e.PublishedOn.Before(start) {
			start = *e.PublishedOn
		}
	}
	if len(uris) == 0 {
		return views, nil
	}

	q := url.Values{}
	q.Set("start", start.Add(-time.Hour).UTC().Format(model.DateTimeLayout))
	q.Set("end", c.now().Format(model.DateTimeLayout))
	q.Set("uris", strings.Join(uris, ","))
	q.Set("unique", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build stats request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("get stats: unexpected status %d", resp.StatusCode)
	}

	var stats []ViewStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	for _, s := range stats {
		if id, ok := strings.CutPrefix(s.URI, EventURIPrefix); ok {
			views[id] += s.Hits
		}
	}
	return views, nil
}

// Noop counts nothing. It is used when no statistics service is configured.
type Noop struct{}

// Views reports zero views for every event.
func (Noop) Views(context.Context, []*model.Event) (map[string]int64, error) {
	return map[string]int64{}, nil
}

// RecordHit discards the hit.
func (Noop) RecordHit(context.Context, string, string) error { return nil }
