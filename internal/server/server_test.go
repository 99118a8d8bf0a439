package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/railzwaylabs/modelrail/internal/account/domain"
	aiaccountdomain "github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"github.com/railzwaylabs/modelrail/internal/auth"
	"github.com/railzwaylabs/modelrail/internal/authorization"
	billingdomain "github.com/railzwaylabs/modelrail/internal/billing/domain"
	"github.com/railzwaylabs/modelrail/internal/clock"
	"github.com/railzwaylabs/modelrail/internal/config"
	subscriptiondomain "github.com/railzwaylabs/modelrail/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	server      *Server
	tokens      *auth.TokenIssuer
	accounts    *MockAccounts
	plans       *MockPlans
	checkout    *MockCheckout
	settings    *MockSettings
	aiAccounts  *MockAIAccounts
	webhooks    *stubWebhooks
	initializer *stubInitializer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "server-test-secret"}}
	tokens, err := auth.NewTokenIssuer(cfg, clock.NewFixed(testNow))
	require.NoError(t, err)

	authorizer, err := authorization.NewAuthorizer(nil, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, authorizer.SeedDefaultPolicies())

	env := &testEnv{
		tokens:      tokens,
		accounts:    &MockAccounts{},
		plans:       &MockPlans{},
		checkout:    &MockCheckout{},
		settings:    &MockSettings{},
		aiAccounts:  &MockAIAccounts{},
		webhooks:    &stubWebhooks{},
		initializer: &stubInitializer{},
	}
	env.server = &Server{
		cfg:          cfg,
		log:          zap.NewNop(),
		db:           db,
		accountSvc:   env.accounts,
		tokens:       tokens,
		authorizer:   authorizer,
		initializer:  env.initializer,
		planSvc:      env.plans,
		checkoutSvc:  env.checkout,
		settingsSvc:  env.settings,
		webhooks:     env.webhooks,
		aiAccountSvc: env.aiAccounts,
	}
	env.server.routes()
	return env
}

func (e *testEnv) token(t *testing.T, userID snowflake.ID, role accountdomain.Role) string {
	t.Helper()
	token, _, err := e.tokens.Issue(t.Context(), userID, string(role))
	require.NoError(t, err)
	return token
}

func (e *testEnv) storedRole(userID snowflake.ID, role accountdomain.Role) {
	e.accounts.On("Get", mock.Anything, userID).
		Return(&accountdomain.User{ID: userID, Email: userID.String() + "@example.com", Role: role}, nil)
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body struct {
		Error errorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestAbortWithError_StatusTable(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err      error
		status   int
		typeName string
	}{
		{aiaccountdomain.ErrEmptyAccountIDs, http.StatusBadRequest, "empty_account_ids"},
		{billingdomain.ErrMissingSignature, http.StatusBadRequest, "missing_signature"},
		{billingdomain.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
		{accountdomain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("lookup: %w", billingdomain.ErrRecordNotFound), http.StatusNotFound, "billing_record_not_found"},
		{subscriptiondomain.ErrPlanAlreadyExists, http.StatusConflict, "plan_already_exists"},
		{billingdomain.ErrEventInProgress, http.StatusConflict, "webhook_event_in_progress"},
		{fmt.Errorf("stripe client: %w", billingdomain.ErrGatewayNotConfigured), http.StatusServiceUnavailable, "gateway_not_configured"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, internalErrorType},
	}

	for _, tc := range cases {
		t.Run(tc.typeName, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			AbortWithError(c, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.True(t, c.IsAborted())
			body := decodeError(t, rec)
			assert.Equal(t, tc.typeName, body.Type)
			if tc.status == http.StatusInternalServerError {
				assert.NotContains(t, body.Message, "pq:")
			}
		})
	}
}

func TestAbortWithError_Validation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	AbortWithError(c, newValidationError("planId", "missing_plan_id", "planId is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "missing_plan_id", body.Type)
	assert.Equal(t, "planId", body.Field)
}

func TestEnsureInitialized(t *testing.T) {
	env := newTestEnv(t)
	env.initializer.err = errors.New("seed admin: boom")

	rec := env.do(http.MethodGet, "/api/plans", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "system_not_ready", decodeError(t, rec).Type)

	// The webhook endpoint sits outside /api and does not wait for init.
	rec = env.do(http.MethodPost, "/webhooks/stripe", "", "{}")
	assert.Equal(t, http.StatusOK, rec.Code)

	env.initializer.err = nil
	env.plans.On("ListActive", mock.Anything).Return([]subscriptiondomain.Plan{{ID: "monthly"}}, nil).Once()
	rec = env.do(http.MethodGet, "/api/plans", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, env.initializer.calls)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	user := &accountdomain.User{ID: 42, Email: "ops@example.com", Role: accountdomain.RoleAdmin}

	env.accounts.On("Authenticate", mock.Anything, "ops@example.com", "correct-horse").Return(user, nil).Once()
	env.accounts.On("Authenticate", mock.Anything, "ops@example.com", "wrong").Return(nil, accountdomain.ErrInvalidCredentials).Once()

	rec := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ops@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data loginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	claims, err := env.tokens.Parse(t.Context(), body.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
	assert.True(t, testNow.Add(24*time.Hour).Equal(body.Data.ExpiresAt))

	rec = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ops@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/login", "", `{"email":"ops@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.accounts.AssertExpectations(t)
}

func TestRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	user := &accountdomain.User{ID: 7, Email: "u@example.com", Role: accountdomain.RoleUser}
	env.accounts.On("Get", mock.Anything, snowflake.ID(7)).Return(user, nil).Once()

	rec := env.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)

	rec = env.do(http.MethodGet, "/api/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", decodeError(t, rec).Type)

	rec = env.do(http.MethodGet, "/api/me", env.token(t, 7, accountdomain.RoleUser), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"u@example.com"`)
}

func TestAdminRoutes_RequireRole(t *testing.T) {
	env := newTestEnv(t)
	env.aiAccounts.On("List", mock.Anything).Return([]aiaccountdomain.Account{{ID: "a1"}}, nil)
	env.settings.On("Get", mock.Anything).Return(&billingdomain.SettingsView{TestMode: true}, nil)
	env.storedRole(1, accountdomain.RoleUser)
	env.storedRole(2, accountdomain.RoleAdmin)
	env.storedRole(3, accountdomain.RoleSuperAdmin)

	userToken := env.token(t, 1, accountdomain.RoleUser)
	adminToken := env.token(t, 2, accountdomain.RoleAdmin)
	superToken := env.token(t, 3, accountdomain.RoleSuperAdmin)

	rec := env.do(http.MethodGet, "/api/admin/ai-accounts", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/api/admin/ai-accounts", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/admin/settings/payment", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/api/admin/settings/payment", superToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/admin/ai-accounts", superToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes_UseStoredRole(t *testing.T) {
	env := newTestEnv(t)
	env.aiAccounts.On("List", mock.Anything).Return([]aiaccountdomain.Account{{ID: "a1"}}, nil)

	// Demoted after the token was issued.
	env.storedRole(2, accountdomain.RoleUser)
	rec := env.do(http.MethodGet, "/api/admin/ai-accounts", env.token(t, 2, accountdomain.RoleAdmin), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Type)

	env.accounts.On("Get", mock.Anything, snowflake.ID(4)).Return(nil, accountdomain.ErrUserNotFound)
	rec = env.do(http.MethodGet, "/api/admin/ai-accounts", env.token(t, 4, accountdomain.RoleSuperAdmin), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Promoted after the token was issued.
	env.storedRole(5, accountdomain.RoleAdmin)
	rec = env.do(http.MethodGet, "/api/admin/ai-accounts", env.token(t, 5, accountdomain.RoleUser), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.aiAccounts.AssertNumberOfCalls(t, "List", 1)
}

func TestBatchHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	env.storedRole(2, accountdomain.RoleAdmin)
	adminToken := env.token(t, 2, accountdomain.RoleAdmin)

	for _, body := range []string{`{"accountIds":"a1"}`, `{}`, `{"accountIds":[]}`, `not json`} {
		rec := env.do(http.MethodPost, "/api/admin/ai-accounts/health-check", adminToken, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	env.aiAccounts.AssertNotCalled(t, "BatchCheck", mock.Anything, mock.Anything)

	result := &aiaccountdomain.BatchResult{
		TotalChecked: 2,
		HealthyCount: 1,
		FailedCount:  1,
		Results: []aiaccountdomain.HealthCheckResult{
			{AccountID: "a1", Status: aiaccountdomain.HealthStatusHealthy, HealthScore: 100},
			{AccountID: "ghost", Status: aiaccountdomain.HealthStatusFailed, Message: "账号不存在"},
		},
		Message: "批量健康检查完成：健康 1 个，警告 0 个，异常 1 个",
	}
	env.aiAccounts.On("BatchCheck", mock.Anything, []string{"a1", "ghost"}).Return(result, nil).Once()

	rec := env.do(http.MethodPost, "/api/admin/ai-accounts/health-check", adminToken, map[string]any{"accountIds": []string{"a1", "ghost"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 2, got["totalChecked"])
	assert.EqualValues(t, 1, got["failedCount"])
	assert.Equal(t, result.Message, got["message"])
	assert.NotContains(t, got, "data")
}

func TestStripeWebhook(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		err    error
		status int
	}{
		{billingdomain.ErrMissingSignature, http.StatusBadRequest},
		{billingdomain.ErrInvalidSignature, http.StatusUnauthorized},
		{billingdomain.ErrEventInProgress, http.StatusConflict},
		{billingdomain.ErrGatewayNotConfigured, http.StatusServiceUnavailable},
		{errors.New("database is locked"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		env.webhooks.err = tc.err
		rec := env.do(http.MethodPost, "/webhooks/stripe", "", `{"id":"evt_1"}`)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}

	env.webhooks.err = nil
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{"id":"evt_2"}`)))
	req.Header.Set(headerStripeSignature, "t=1,v1=abc")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, `{"id":"evt_2"}`, string(env.webhooks.payload))
	assert.Equal(t, "t=1,v1=abc", env.webhooks.sigHeader)
}

func TestStripeWebhook_OversizedPayload(t *testing.T) {
	env := newTestEnv(t)

	body := `{"id":"evt_big","pad":"` + strings.Repeat("x", maxWebhookPayload) + `"}`
	rec := env.do(http.MethodPost, "/webhooks/stripe", "", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", decodeError(t, rec).Type)
	assert.Nil(t, env.webhooks.payload)

	body = strings.Repeat(" ", maxWebhookPayload-len(`{"id":"evt_fit"}`)) + `{"id":"evt_fit"}`
	rec = env.do(http.MethodPost, "/webhooks/stripe", "", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.webhooks.payload, maxWebhookPayload)
}

func TestCreatePaymentIntent(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, 42, accountdomain.RoleUser)

	rec := env.do(http.MethodPost, "/api/billing/payment-intents", token, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_plan_id", decodeError(t, rec).Type)

	env.checkout.On("CreatePlanPayment", mock.Anything, snowflake.ID(42), "monthly").
		Return(&billingdomain.CheckoutResult{ClientSecret: "pi_1_secret", PublishableKey: "pk_test_1"}, nil).Once()
	env.checkout.On("CreatePlanPayment", mock.Anything, snowflake.ID(42), "ghost").
		Return(nil, subscriptiondomain.ErrPlanNotFound).Once()

	rec = env.do(http.MethodPost, "/api/billing/payment-intents", token, map[string]string{"planId": "monthly"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"client_secret":"pi_1_secret"`)

	rec = env.do(http.MethodPost, "/api/billing/payment-intents", token, map[string]string{"planId": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.checkout.AssertExpectations(t)
}

func TestGetBillingReceipt(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, 42, accountdomain.RoleUser)

	env.checkout.On("Receipt", mock.Anything, snowflake.ID(42), snowflake.ID(9001)).Return([]byte("%PDF-1.3 test"), nil).Once()
	env.checkout.On("Receipt", mock.Anything, snowflake.ID(42), snowflake.ID(9002)).Return(nil, billingdomain.ErrReceiptUnavailable).Once()

	rec := env.do(http.MethodGet, "/api/billing/records/9001/receipt", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "receipt-9001.pdf")

	rec = env.do(http.MethodGet, "/api/billing/records/9002/receipt", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodGet, "/api/billing/records/abc/receipt", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
