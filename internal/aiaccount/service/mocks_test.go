package service

import (
	"context"

	"github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"github.com/stretchr/testify/mock"
)

type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Seal(plaintext string) ([]byte, error) {
	args := m.Called(plaintext)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockCredentialStore) Decrypt(blob []byte) (string, error) {
	args := m.Called(blob)
	return args.String(0), args.Error(1)
}

type MockProber struct {
	mock.Mock
}

func (m *MockProber) Probe(ctx context.Context, provider domain.Provider, credential string) domain.ProbeResult {
	args := m.Called(ctx, provider, credential)
	if fn, ok := args.Get(0).(func() domain.ProbeResult); ok {
		return fn()
	}
	return args.Get(0).(domain.ProbeResult)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) AccountsFailed(ctx context.Context, results []domain.HealthCheckResult) error {
	args := m.Called(ctx, results)
	return args.Error(0)
}
