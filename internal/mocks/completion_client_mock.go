package mocks

import (
	"context"

	"decision-server/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockCompletionClient is a mock type for the CompletionClient type
type MockCompletionClient struct {
	mock.Mock
}

// Complete provides a mock function with given fields: ctx, prompt, params
func (_m *MockCompletionClient) Complete(ctx context.Context, prompt string, params service.GenerationParams) (string, error) {
	ret := _m.Called(ctx, prompt, params)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, service.GenerationParams) string); ok {
		r0 = rf(ctx, prompt, params)
	} else {
		r0 = ret.String(0)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, service.GenerationParams) error); ok {
		r1 = rf(ctx, prompt, params)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockCompletionClient creates a new instance of MockCompletionClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockCompletionClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCompletionClient {
	m := &MockCompletionClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.CompletionClient = (*MockCompletionClient)(nil)
