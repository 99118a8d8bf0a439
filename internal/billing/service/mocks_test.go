package service

import (
	"context"

	"github.com/railzwaylabs/modelrail/internal/billing/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v76"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, in domain.PaymentIntentInput) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, in)
	pi, _ := args.Get(0).(*stripe.PaymentIntent)
	return pi, args.Error(1)
}

func (m *MockGateway) ConfirmPaymentIntent(ctx context.Context, id, paymentMethod string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, id, paymentMethod)
	pi, _ := args.Get(0).(*stripe.PaymentIntent)
	return pi, args.Error(1)
}

func (m *MockGateway) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, id)
	pi, _ := args.Get(0).(*stripe.PaymentIntent)
	return pi, args.Error(1)
}

func (m *MockGateway) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*stripe.Customer, error) {
	args := m.Called(ctx, email, metadata)
	c, _ := args.Get(0).(*stripe.Customer)
	return c, args.Error(1)
}

func (m *MockGateway) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*stripe.Customer)
	return c, args.Error(1)
}

func (m *MockGateway) ConstructEvent(ctx context.Context, payload []byte, sigHeader string) (stripe.Event, error) {
	args := m.Called(ctx, payload, sigHeader)
	ev, _ := args.Get(0).(stripe.Event)
	return ev, args.Error(1)
}

func (m *MockGateway) PublishableKey(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
