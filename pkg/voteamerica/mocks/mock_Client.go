// Package mocks provides test doubles for the voteamerica client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	voteamerica "github.com/sells-group/office-scraper/pkg/voteamerica"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// ElectionOffices provides a mock function with given fields: ctx, state
func (_m *MockClient) ElectionOffices(ctx context.Context, state string) ([]voteamerica.Office, error) {
	ret := _m.Called(ctx, state)

	if len(ret) == 0 {
		panic("no return value specified for ElectionOffices")
	}

	var r0 []voteamerica.Office
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]voteamerica.Office, error)); ok {
		return rf(ctx, state)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]voteamerica.Office)
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
