// Package mocks provides test doubles for the civicinfo client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	civicinfo "github.com/sells-group/office-scraper/pkg/civicinfo"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Representatives provides a mock function with given fields: ctx, address
func (_m *MockClient) Representatives(ctx context.Context, address string) (*civicinfo.RepresentativesResponse, error) {
	ret := _m.Called(ctx, address)

	if len(ret) == 0 {
		panic("no return value specified for Representatives")
	}

	var r0 *civicinfo.RepresentativesResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*civicinfo.RepresentativesResponse, error)); ok {
		return rf(ctx, address)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*civicinfo.RepresentativesResponse)
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
