package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/GabrielNunesIT/discordlog/internal/emitter"
	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
)

// MockEmitter is a testify mock of emitter.Emitter.
type MockEmitter struct {
	mock.Mock
	name string
}

var _ emitter.Emitter = (*MockEmitter)(nil)

// NewMockEmitter creates a mock whose expectations are asserted on cleanup.
func NewMockEmitter(t interface {
	mock.TestingT
	Cleanup(func())
}, name string) *MockEmitter {
	m := &MockEmitter{name: name}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEmitter) Name() string { return m.name }

func (m *MockEmitter) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockEmitter) Emit(ctx context.Context, rec discordlog.Record) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockEmitter) Stop(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
