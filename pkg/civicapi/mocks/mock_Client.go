// Package mocks provides test doubles for the civicapi client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	civicapi "github.com/sells-group/office-scraper/pkg/civicapi"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Officials provides a mock function with given fields: ctx, state
func (_m *MockClient) Officials(ctx context.Context, state string) ([]civicapi.Official, error) {
	ret := _m.Called(ctx, state)

	if len(ret) == 0 {
		panic("no return value specified for Officials")
	}

	var r0 []civicapi.Official
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]civicapi.Official, error)); ok {
		return rf(ctx, state)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]civicapi.Official)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
