// Package mocks provides testify mocks for the service ports.
package mocks

import (
	"context"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// Notifier mocks ports.Notifier.
type Notifier struct {
	mock.Mock
}

// NewNotifier creates a Notifier whose expectations are asserted on cleanup.
func NewNotifier(t testingT) *Notifier {
	m := &Notifier{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Notifier) Publish(ctx context.Context, routingKey string, payload any) error {
	args := m.Called(ctx, routingKey, payload)
	return args.Error(0)
}

// ViewCounter mocks ports.ViewCounter.
type ViewCounter struct {
	mock.Mock
}

// NewViewCounter creates a ViewCounter whose expectations are asserted on cleanup.
func NewViewCounter(t testingT) *ViewCounter {
	m := &ViewCounter{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ViewCounter) Views(ctx context.Context, events []*model.Event) (map[string]int64, error) {
	args := m.Called(ctx, events)
	views, _ := args.Get(0).(map[string]int64)
	return views, args.Error(1)
}

func (m *ViewCounter) RecordHit(ctx context.Context, uri, ip string) error {
	args := m.Called(ctx, uri, ip)
	return args.Error(0)
}
