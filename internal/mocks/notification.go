package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, to, message string) bool {
	args := m.Called(ctx, to, message)
	return args.Bool(0)
}

func (m *MockSender) SendToGroup(ctx context.Context, groupID, message string) bool {
	args := m.Called(ctx, groupID, message)
	return args.Bool(0)
}
