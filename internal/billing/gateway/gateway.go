package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/railzwaylabs/modelrail/internal/billing/domain"
	"github.com/railzwaylabs/modelrail/internal/security/vault"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Vault vault.Provider
}

// Gateway is the Stripe-backed PaymentGateway. Keys are read from
// site_settings on every call; the SDK client is rebuilt only when the
// secret key or test-mode flag changes.
type Gateway struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	vault    vault.Provider
	backends *stripe.Backends

	mu       sync.Mutex
	api      *client.API
	apiKey   string
	testMode bool
}

type credentials struct {
	secretKey      string
	publishableKey string
	webhookSecret  string
	testMode       bool
}

func NewGateway(p Params) domain.PaymentGateway {
	return New(p.DB, p.Repo, p.Vault, p.Log, nil)
}

// New builds a Gateway. A nil backends uses the SDK defaults.
func New(db *gorm.DB, repo domain.Repository, v vault.Provider, log *zap.Logger, backends *stripe.Backends) *Gateway {
	return &Gateway{
		db:       db,
		log:      log.Named("billing.gateway"),
		repo:     repo,
		vault:    v,
		backends: backends,
	}
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, in domain.PaymentIntentInput) (*stripe.PaymentIntent, error) {
	if in.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "usd"
	}

	sc, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToMinorUnits(in.Amount, currency)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if in.CustomerID != "" {
		params.Customer = stripe.String(in.CustomerID)
	}
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	pi, err := sc.PaymentIntents.New(params)
	if err != nil {
		return nil, g.fail("create payment intent", err)
	}
	return pi, nil
}

func (g *Gateway) ConfirmPaymentIntent(ctx context.Context, id, paymentMethod string) (*stripe.PaymentIntent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrRecordNotFound
	}
	sc, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentConfirmParams{}
	if pm := strings.TrimSpace(paymentMethod); pm != "" {
		params.PaymentMethod = stripe.String(pm)
	}
	params.Context = ctx

	pi, err := sc.PaymentIntents.Confirm(id, params)
	if err != nil {
		return nil, g.fail("confirm payment intent", err)
	}
	return pi, nil
}

func (g *Gateway) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	sc, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := sc.PaymentIntents.Get(strings.TrimSpace(id), params)
	if err != nil {
		return nil, g.fail("get payment intent", err)
	}
	return pi, nil
}

func (g *Gateway) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*stripe.Customer, error) {
	sc, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	params := &stripe.CustomerParams{
		Email: stripe.String(strings.TrimSpace(email)),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	cust, err := sc.Customers.New(params)
	if err != nil {
		return nil, g.fail("create customer", err)
	}
	return cust, nil
}

func (g *Gateway) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	sc, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := sc.Customers.Get(strings.TrimSpace(id), params)
	if err != nil {
		return nil, g.fail("get customer", err)
	}
	return cust, nil
}

// ConstructEvent verifies the Stripe-Signature header against the stored
// webhook secret and decodes the event.
func (g *Gateway) ConstructEvent(ctx context.Context, payload []byte, sigHeader string) (stripe.Event, error) {
	if strings.TrimSpace(sigHeader) == "" {
		return stripe.Event{}, domain.ErrMissingSignature
	}
	creds, err := g.credentials(ctx)
	if err != nil {
		return stripe.Event{}, err
	}
	if creds.webhookSecret == "" {
		return stripe.Event{}, fmt.Errorf("%w: webhook secret", domain.ErrGatewayNotConfigured)
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, creds.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		g.log.Warn("webhook signature rejected", zap.Error(err))
		return stripe.Event{}, domain.ErrInvalidSignature
	}
	return event, nil
}

func (g *Gateway) PublishableKey(ctx context.Context) (string, error) {
	creds, err := g.credentials(ctx)
	if err != nil {
		return "", err
	}
	return creds.publishableKey, nil
}

func (g *Gateway) client(ctx context.Context) (*client.API, error) {
	creds, err := g.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if creds.secretKey == "" {
		return nil, fmt.Errorf("%w: secret key", domain.ErrGatewayNotConfigured)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.api != nil && g.apiKey == creds.secretKey && g.testMode == creds.testMode {
		return g.api, nil
	}

	sc := &client.API{}
	sc.Init(creds.secretKey, g.backends)
	g.api = sc
	g.apiKey = creds.secretKey
	g.testMode = creds.testMode
	g.log.Info("payment gateway client initialized", zap.Bool("test_mode", creds.testMode))
	return sc, nil
}

func (g *Gateway) credentials(ctx context.Context) (credentials, error) {
	row, err := g.repo.LoadSettings(ctx, g.db)
	if err != nil {
		return credentials{}, err
	}
	if row == nil {
		return credentials{}, domain.ErrGatewayNotConfigured
	}

	secretKey, err := g.open(row.StripeSecretKey)
	if err != nil {
		return credentials{}, err
	}
	webhookSecret, err := g.open(row.StripeWebhookSecret)
	if err != nil {
		return credentials{}, err
	}

	return credentials{
		secretKey:      secretKey,
		publishableKey: strings.TrimSpace(row.StripePublishableKey),
		webhookSecret:  webhookSecret,
		testMode:       row.StripeTestMode,
	}, nil
}

func (g *Gateway) open(sealed []byte) (string, error) {
	if len(sealed) == 0 {
		return "", nil
	}
	if g.vault == nil {
		return "", fmt.Errorf("%w: vault unavailable", domain.ErrGatewayNotConfigured)
	}
	plain, err := g.vault.Decrypt(sealed)
	if err != nil {
		g.log.Error("failed to decrypt payment settings", zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayNotConfigured, err)
	}
	return strings.TrimSpace(string(plain)), nil
}

func (g *Gateway) fail(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		g.log.Warn("payment gateway call failed",
			zap.String("op", op),
			zap.String("code", string(stripeErr.Code)),
			zap.Int("http_status", stripeErr.HTTPStatusCode),
			zap.String("message", stripeErr.Msg),
		)
	} else {
		g.log.Error("payment gateway call failed", zap.String("op", op), zap.Error(err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
