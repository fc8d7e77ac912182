package model

import (
	"slices"
	"strings"
	"time"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// Page is an offset window over a result list.
type Page struct {
	From int
	Size int
}

// Normalize clamps the window to sane bounds.
func (p Page) Normalize() Page {
	if p.From < 0 {
		p.From = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Window returns the [lo, hi) slice bounds for a list of length n.
func (p Page) Window(n int) (lo, hi int) {
	lo = min(p.From, n)
	hi = min(lo+p.Size, n)
	return lo, hi
}

// EventSort orders public search results.
type EventSort string

const (
	SortEventDate EventSort = "EVENT_DATE"
	SortViews     EventSort = "VIEWS"
)

// ParseEventSort accepts a sort name in any letter case; empty means by date.
func ParseEventSort(s string) (EventSort, error) {
	if strings.TrimSpace(s) == "" {
		return SortEventDate, nil
	}
	switch so := EventSort(strings.ToUpper(strings.TrimSpace(s))); so {
	case SortEventDate, SortViews:
		return so, nil
	}
	return "", Invalid("unknown sort %q", s)
}

// EventFilter is the storage-level event query. Zero fields do not filter.
type EventFilter struct {
	InitiatorIDs []string
	States       []EventState
	CategoryIDs  []int64
	Paid         *bool
	Text         string
	RangeStart   *time.Time
	RangeEnd     *time.Time
}

// Validate rejects an inverted date range.
func (f EventFilter) Validate() error {
	if f.RangeStart != nil && f.RangeEnd != nil && !f.RangeEnd.After(*f.RangeStart) {
		return Invalid("range end must be after range start")
	}
	return nil
}

// Matches applies the filter to a single event in memory.
func (f EventFilter) Matches(e *Event) bool {
	if len(f.InitiatorIDs) > 0 && !slices.Contains(f.InitiatorIDs, e.InitiatorID) {
		return false
	}
	if len(f.States) > 0 && !slices.Contains(f.States, e.State) {
		return false
	}
	if len(f.CategoryIDs) > 0 && !slices.Contains(f.CategoryIDs, e.CategoryID) {
		return false
	}
	if f.Paid != nil && *f.Paid != e.Paid {
		return false
	}
	if f.RangeStart != nil && e.EventDate.Before(*f.RangeStart) {
		return false
	}
	if f.RangeEnd != nil && e.EventDate.After(*f.RangeEnd) {
		return false
	}
	if f.Text != "" {
		text := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(e.Annotation), text) &&
			!strings.Contains(strings.ToLower(e.Description), text) &&
			!strings.Contains(strings.ToLower(e.Title), text) {
			return false
		}
	}
	return true
}

// PublicFilter is the anonymous search over published events.
type PublicFilter struct {
	EventFilter
	OnlyAvailable bool
	Sort          EventSort
	Page          Page
}

// AdminFilter is the unrestricted administrator search.
type AdminFilter struct {
	EventFilter
	Page Page
}
