package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/railzwaylabs/modelrail/internal/billing/domain"
	"github.com/railzwaylabs/modelrail/internal/billing/repository"
	"github.com/railzwaylabs/modelrail/internal/security/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type capturedRequest struct {
	method string
	path   string
	auth   string
	form   url.Values
}

type fakeStripe struct {
	mu       sync.Mutex
	requests []capturedRequest
}

func (f *fakeStripe) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	form, _ := url.ParseQuery(string(body))

	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization"), form: form})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/v1/payment_intents" && r.Method == http.MethodPost:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "pi_test_1",
			"object":        "payment_intent",
			"amount":        999,
			"currency":      form.Get("currency"),
			"status":        "requires_payment_method",
			"client_secret": "pi_test_1_secret_abc",
		})
	case r.URL.Path == "/v1/payment_intents/pi_test_1/confirm":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "pi_test_1",
			"object": "payment_intent",
			"status": "succeeded",
		})
	case r.URL.Path == "/v1/customers" && r.Method == http.MethodPost:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cus_1",
			"object": "customer",
			"email":  form.Get("email"),
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "invalid_request_error", "code": "resource_missing", "message": "No such object"},
		})
	}
}

func (f *fakeStripe) last() capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fixture struct {
	db    *gorm.DB
	repo  domain.Repository
	vault vault.Provider
	fake  *fakeStripe
	gw    *Gateway
}

func setup(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.PaymentSettings{}))

	v, err := vault.NewAESVault("gateway-test-key")
	require.NoError(t, err)

	fake := &fakeStripe{}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	backends := &stripe.Backends{API: backend, Connect: backend, Uploads: backend}

	repo := repository.Provide()
	return &fixture{
		db:    db,
		repo:  repo,
		vault: v,
		fake:  fake,
		gw:    New(db, repo, v, zap.NewNop(), backends),
	}
}

func (f *fixture) saveSettings(t *testing.T, secretKey, webhookSecret string, testMode bool) {
	t.Helper()
	row := &domain.PaymentSettings{
		StripePublishableKey: "pk_test_123",
		StripeTestMode:       testMode,
		UpdatedAt:            time.Now().UTC(),
	}
	if secretKey != "" {
		sealed, err := f.vault.Encrypt([]byte(secretKey))
		require.NoError(t, err)
		row.StripeSecretKey = sealed
	}
	if webhookSecret != "" {
		sealed, err := f.vault.Encrypt([]byte(webhookSecret))
		require.NoError(t, err)
		row.StripeWebhookSecret = sealed
	}
	require.NoError(t, f.repo.SaveSettings(context.Background(), f.db, row))
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(999), ToMinorUnits(9.99, "USD"))
	assert.Equal(t, int64(2699), ToMinorUnits(26.99, "eur"))
	assert.Equal(t, int64(1500), ToMinorUnits(1500, "JPY"))
	assert.Equal(t, int64(9900), ToMinorUnits(9900, "krw"))
	assert.Equal(t, int64(10), ToMinorUnits(0.1, ""))
	assert.InDelta(t, 9.99, FromMinorUnits(999, "USD"), 0.0001)
	assert.InDelta(t, 1500, FromMinorUnits(1500, "JPY"), 0.0001)
}

func TestGateway_NotConfigured(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	pi, err := f.gw.CreatePaymentIntent(ctx, domain.PaymentIntentInput{Amount: 10, Currency: "usd"})
	assert.Nil(t, pi)
	assert.ErrorIs(t, err, domain.ErrGatewayNotConfigured)

	cust, err := f.gw.GetCustomer(ctx, "cus_1")
	assert.Nil(t, cust)
	assert.ErrorIs(t, err, domain.ErrGatewayNotConfigured)

	_, err = f.gw.ConstructEvent(ctx, []byte(`{}`), "t=1,v1=abc")
	assert.ErrorIs(t, err, domain.ErrGatewayNotConfigured)

	assert.Empty(t, f.fake.requests)
}

func TestGateway_CreatePaymentIntent(t *testing.T) {
	f := setup(t)
	f.saveSettings(t, "sk_test_one", "", true)
	ctx := context.Background()

	pi, err := f.gw.CreatePaymentIntent(ctx, domain.PaymentIntentInput{
		Amount:      9.99,
		Currency:    "USD",
		CustomerID:  "cus_1",
		Description: "Monthly",
		Metadata:    map[string]string{"userId": "7", "planId": "monthly"},
	})
	require.NoError(t, err)
	require.NotNil(t, pi)
	assert.Equal(t, "pi_test_1", pi.ID)
	assert.Equal(t, "pi_test_1_secret_abc", pi.ClientSecret)

	req := f.fake.last()
	assert.Equal(t, "/v1/payment_intents", req.path)
	assert.Equal(t, "Bearer sk_test_one", req.auth)
	assert.Equal(t, "999", req.form.Get("amount"))
	assert.Equal(t, "usd", req.form.Get("currency"))
	assert.Equal(t, "cus_1", req.form.Get("customer"))
	assert.Equal(t, "monthly", req.form.Get("metadata[planId]"))
	assert.Equal(t, "7", req.form.Get("metadata[userId]"))
}

func TestGateway_InvalidAmount(t *testing.T) {
	f := setup(t)
	f.saveSettings(t, "sk_test_one", "", true)

	pi, err := f.gw.CreatePaymentIntent(context.Background(), domain.PaymentIntentInput{Amount: 0, Currency: "usd"})
	assert.Nil(t, pi)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Empty(t, f.fake.requests)
}

func TestGateway_ClientCachedUntilSettingsChange(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.saveSettings(t, "sk_test_one", "", true)

	first, err := f.gw.client(ctx)
	require.NoError(t, err)
	second, err := f.gw.client(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)

	f.saveSettings(t, "sk_test_one", "", false)
	third, err := f.gw.client(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	f.saveSettings(t, "sk_test_two", "", false)
	_, err = f.gw.CreateCustomer(ctx, "buyer@example.com", map[string]string{"userId": "7"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk_test_two", f.fake.last().auth)
}

func TestGateway_ConfirmAndErrors(t *testing.T) {
	f := setup(t)
	f.saveSettings(t, "sk_test_one", "", true)
	ctx := context.Background()

	pi, err := f.gw.ConfirmPaymentIntent(ctx, "pi_test_1", "pm_card_visa")
	require.NoError(t, err)
	assert.Equal(t, stripe.PaymentIntentStatusSucceeded, pi.Status)
	assert.Equal(t, "pm_card_visa", f.fake.last().form.Get("payment_method"))

	missing, err := f.gw.GetPaymentIntent(ctx, "pi_unknown")
	assert.Nil(t, missing)
	require.Error(t, err)
	var stripeErr *stripe.Error
	require.ErrorAs(t, err, &stripeErr)
	assert.Equal(t, http.StatusNotFound, stripeErr.HTTPStatusCode)
}

func TestGateway_ConstructEvent(t *testing.T) {
	f := setup(t)
	f.saveSettings(t, "sk_test_one", "whsec_test", true)
	ctx := context.Background()

	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_test"})

	event, err := f.gw.ConstructEvent(ctx, signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "payment_intent.succeeded", string(event.Type))

	_, err = f.gw.ConstructEvent(ctx, payload, "")
	assert.ErrorIs(t, err, domain.ErrMissingSignature)

	forged := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_other"})
	_, err = f.gw.ConstructEvent(ctx, forged.Payload, forged.Header)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}
