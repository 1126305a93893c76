package mocks

import (
	"context"

	"decision-server/internal/messaging"

	"github.com/stretchr/testify/mock"
)

// MockResultPublisher is a mock type for the ResultPublisher type
type MockResultPublisher struct {
	mock.Mock
}

// PublishSessionCompleted provides a mock function with given fields: ctx, event
func (_m *MockResultPublisher) PublishSessionCompleted(ctx context.Context, event messaging.SessionCompletedEvent) error {
	ret := _m.Called(ctx, event)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, messaging.SessionCompletedEvent) error); ok {
		r0 = rf(ctx, event)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockResultPublisher creates a new instance of MockResultPublisher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockResultPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockResultPublisher {
	m := &MockResultPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ messaging.ResultPublisher = (*MockResultPublisher)(nil)
