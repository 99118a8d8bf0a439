package service

import (
	"context"
	"errors"
	"testing"

	aiaccountdomain "github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"github.com/railzwaylabs/modelrail/internal/notify/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockProvider struct {
	mock.Mock
	name string
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) Send(ctx context.Context, msg domain.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestAccountsFailed_OnlyFailedResults(t *testing.T) {
	p := &MockProvider{name: "slack"}
	p.On("Send", mock.Anything, domain.Message{
		Title: "AI account health check: 1 account(s) failed",
		Lines: []string{"- a2 (a2) score=0: 账号不存在"},
	}).Return(nil).Once()

	n := NewNotifier(zap.NewNop(), p)
	err := n.AccountsFailed(context.Background(), []aiaccountdomain.HealthCheckResult{
		{AccountID: "a1", AccountName: "primary", Status: aiaccountdomain.HealthStatusHealthy, HealthScore: 100},
		{AccountID: "a2", Status: aiaccountdomain.HealthStatusFailed, Message: "账号不存在"},
	})
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestAccountsFailed_NothingToSend(t *testing.T) {
	p := &MockProvider{name: "slack"}
	n := NewNotifier(zap.NewNop(), p)

	require.NoError(t, n.AccountsFailed(context.Background(), []aiaccountdomain.HealthCheckResult{
		{AccountID: "a1", Status: aiaccountdomain.HealthStatusWarning},
	}))
	p.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)

	require.NoError(t, NewNotifier(zap.NewNop()).AccountsFailed(context.Background(), []aiaccountdomain.HealthCheckResult{
		{AccountID: "a1", Status: aiaccountdomain.HealthStatusFailed},
	}))
}

func TestSend_JoinsProviderErrors(t *testing.T) {
	boom := errors.New("boom")
	slack := &MockProvider{name: "slack"}
	slack.On("Send", mock.Anything, mock.Anything).Return(boom)
	telegram := &MockProvider{name: "telegram"}
	telegram.On("Send", mock.Anything, mock.Anything).Return(nil)

	err := NewNotifier(zap.NewNop(), slack, telegram).Send(context.Background(), domain.Message{Title: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "slack")
	telegram.AssertCalled(t, "Send", mock.Anything, mock.Anything)
}
