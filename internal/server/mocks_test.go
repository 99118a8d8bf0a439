package server

import (
	"context"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/railzwaylabs/modelrail/internal/account/domain"
	aiaccountdomain "github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	billingdomain "github.com/railzwaylabs/modelrail/internal/billing/domain"
	subscriptiondomain "github.com/railzwaylabs/modelrail/internal/subscription/domain"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) Authenticate(ctx context.Context, email, password string) (*accountdomain.User, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*accountdomain.User)
	return user, args.Error(1)
}

func (m *MockAccounts) Get(ctx context.Context, id snowflake.ID) (*accountdomain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*accountdomain.User)
	return user, args.Error(1)
}

func (m *MockAccounts) Register(ctx context.Context, email, password string, role accountdomain.Role) (*accountdomain.User, error) {
	args := m.Called(ctx, email, password, role)
	user, _ := args.Get(0).(*accountdomain.User)
	return user, args.Error(1)
}

func (m *MockAccounts) EnsureUser(ctx context.Context, email, password string, role accountdomain.Role) (*accountdomain.User, error) {
	args := m.Called(ctx, email, password, role)
	user, _ := args.Get(0).(*accountdomain.User)
	return user, args.Error(1)
}

func (m *MockAccounts) SetStripeCustomerID(ctx context.Context, id snowflake.ID, customerID string) error {
	return m.Called(ctx, id, customerID).Error(0)
}

type MockPlans struct {
	mock.Mock
}

func (m *MockPlans) ListActive(ctx context.Context) ([]subscriptiondomain.Plan, error) {
	args := m.Called(ctx)
	plans, _ := args.Get(0).([]subscriptiondomain.Plan)
	return plans, args.Error(1)
}

func (m *MockPlans) Get(ctx context.Context, id string) (*subscriptiondomain.Plan, error) {
	args := m.Called(ctx, id)
	plan, _ := args.Get(0).(*subscriptiondomain.Plan)
	return plan, args.Error(1)
}

func (m *MockPlans) Create(ctx context.Context, req subscriptiondomain.CreatePlanRequest) (*subscriptiondomain.Plan, error) {
	args := m.Called(ctx, req)
	plan, _ := args.Get(0).(*subscriptiondomain.Plan)
	return plan, args.Error(1)
}

func (m *MockPlans) EnsureDefaultPlans(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPlans) ExtendFromPayment(ctx context.Context, tx *gorm.DB, grant subscriptiondomain.PaymentGrant) (bool, error) {
	args := m.Called(ctx, tx, grant)
	return args.Bool(0), args.Error(1)
}

type MockCheckout struct {
	mock.Mock
}

func (m *MockCheckout) CreatePlanPayment(ctx context.Context, userID snowflake.ID, planID string) (*billingdomain.CheckoutResult, error) {
	args := m.Called(ctx, userID, planID)
	result, _ := args.Get(0).(*billingdomain.CheckoutResult)
	return result, args.Error(1)
}

func (m *MockCheckout) ConfirmPayment(ctx context.Context, userID snowflake.ID, externalID, paymentMethod string) (*billingdomain.BillingRecord, error) {
	args := m.Called(ctx, userID, externalID, paymentMethod)
	record, _ := args.Get(0).(*billingdomain.BillingRecord)
	return record, args.Error(1)
}

func (m *MockCheckout) ListRecords(ctx context.Context, userID snowflake.ID) ([]billingdomain.BillingRecord, error) {
	args := m.Called(ctx, userID)
	records, _ := args.Get(0).([]billingdomain.BillingRecord)
	return records, args.Error(1)
}

func (m *MockCheckout) GetRecord(ctx context.Context, userID, id snowflake.ID) (*billingdomain.BillingRecord, error) {
	args := m.Called(ctx, userID, id)
	record, _ := args.Get(0).(*billingdomain.BillingRecord)
	return record, args.Error(1)
}

func (m *MockCheckout) Receipt(ctx context.Context, userID, id snowflake.ID) ([]byte, error) {
	args := m.Called(ctx, userID, id)
	pdf, _ := args.Get(0).([]byte)
	return pdf, args.Error(1)
}

type MockSettings struct {
	mock.Mock
}

func (m *MockSettings) Get(ctx context.Context) (*billingdomain.SettingsView, error) {
	args := m.Called(ctx)
	view, _ := args.Get(0).(*billingdomain.SettingsView)
	return view, args.Error(1)
}

func (m *MockSettings) Update(ctx context.Context, req billingdomain.UpdateSettingsRequest) (*billingdomain.SettingsView, error) {
	args := m.Called(ctx, req)
	view, _ := args.Get(0).(*billingdomain.SettingsView)
	return view, args.Error(1)
}

func (m *MockSettings) EnsureRow(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockAIAccounts struct {
	mock.Mock
}

func (m *MockAIAccounts) Create(ctx context.Context, req aiaccountdomain.CreateAccountRequest) (*aiaccountdomain.Account, error) {
	args := m.Called(ctx, req)
	account, _ := args.Get(0).(*aiaccountdomain.Account)
	return account, args.Error(1)
}

func (m *MockAIAccounts) Get(ctx context.Context, id string) (*aiaccountdomain.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*aiaccountdomain.Account)
	return account, args.Error(1)
}

func (m *MockAIAccounts) List(ctx context.Context) ([]aiaccountdomain.Account, error) {
	args := m.Called(ctx)
	accounts, _ := args.Get(0).([]aiaccountdomain.Account)
	return accounts, args.Error(1)
}

func (m *MockAIAccounts) BatchCheck(ctx context.Context, ids []string) (*aiaccountdomain.BatchResult, error) {
	args := m.Called(ctx, ids)
	result, _ := args.Get(0).(*aiaccountdomain.BatchResult)
	return result, args.Error(1)
}

type stubWebhooks struct {
	err       error
	payload   []byte
	sigHeader string
}

func (s *stubWebhooks) Handle(_ context.Context, payload []byte, sigHeader string) error {
	s.payload = payload
	s.sigHeader = sigHeader
	return s.err
}

type stubInitializer struct {
	err   error
	calls int
}

func (s *stubInitializer) Ensure(context.Context) error {
	s.calls++
	return s.err
}
