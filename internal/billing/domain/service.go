package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"
)

var (
	ErrGatewayNotConfigured = errors.New("gateway_not_configured")
	ErrMissingSignature     = errors.New("missing_signature")
	ErrInvalidSignature     = errors.New("invalid_signature")
	ErrRecordNotFound       = errors.New("billing_record_not_found")
	ErrReceiptUnavailable   = errors.New("receipt_unavailable")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidPaymentMethod = errors.New("invalid_payment_method")
	ErrInvalidSettings      = errors.New("invalid_payment_settings")
	ErrInvalidEvent         = errors.New("invalid_webhook_event")
	ErrEventInProgress      = errors.New("webhook_event_in_progress")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *BillingRecord) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BillingRecord, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*BillingRecord, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]BillingRecord, error)
	// UpdateStatus reports false when the record is already completed or
	// canceled; terminal records are never rewritten.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status RecordStatus, metadata map[string]any, now time.Time) (bool, error)

	WebhookEventExists(ctx context.Context, db *gorm.DB, eventID string) (bool, error)
	InsertWebhookEvent(ctx context.Context, db *gorm.DB, event *WebhookEvent) error

	LoadSettings(ctx context.Context, db *gorm.DB) (*PaymentSettings, error)
	SaveSettings(ctx context.Context, db *gorm.DB, settings *PaymentSettings) error
}

type PaymentIntentInput struct {
	Amount      float64
	Currency    string
	CustomerID  string
	Description string
	Metadata    map[string]string
}

// PaymentGateway wraps the payment provider. Every operation returns
// (nil, err) on failure and never panics.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, in PaymentIntentInput) (*stripe.PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, id, paymentMethod string) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*stripe.Customer, error)
	GetCustomer(ctx context.Context, id string) (*stripe.Customer, error)
	ConstructEvent(ctx context.Context, payload []byte, sigHeader string) (stripe.Event, error)
	PublishableKey(ctx context.Context) (string, error)
}

type CheckoutResult struct {
	Record         *BillingRecord `json:"record"`
	ClientSecret   string         `json:"client_secret"`
	PublishableKey string         `json:"publishable_key"`
}

type CheckoutService interface {
	CreatePlanPayment(ctx context.Context, userID snowflake.ID, planID string) (*CheckoutResult, error)
	ConfirmPayment(ctx context.Context, userID snowflake.ID, externalID, paymentMethod string) (*BillingRecord, error)
	ListRecords(ctx context.Context, userID snowflake.ID) ([]BillingRecord, error)
	GetRecord(ctx context.Context, userID, id snowflake.ID) (*BillingRecord, error)
	// Receipt renders a PDF receipt for a completed record owned by userID.
	Receipt(ctx context.Context, userID, id snowflake.ID) ([]byte, error)
}

// SettingsView is the admin-facing shape of PaymentSettings; secrets are masked.
type SettingsView struct {
	SecretKey        string `json:"secret_key"`
	PublishableKey   string `json:"publishable_key"`
	WebhookSecret    string `json:"webhook_secret"`
	TestMode         bool   `json:"test_mode"`
	SecretKeySet     bool   `json:"secret_key_set"`
	WebhookSecretSet bool   `json:"webhook_secret_set"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

// UpdateSettingsRequest leaves a field unchanged when it is nil.
type UpdateSettingsRequest struct {
	SecretKey      *string `json:"secret_key"`
	PublishableKey *string `json:"publishable_key"`
	WebhookSecret  *string `json:"webhook_secret"`
	TestMode       *bool   `json:"test_mode"`
}

type SettingsService interface {
	Get(ctx context.Context) (*SettingsView, error)
	Update(ctx context.Context, req UpdateSettingsRequest) (*SettingsView, error)
	EnsureRow(ctx context.Context) error
}
