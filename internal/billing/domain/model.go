package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type RecordType string

const (
	RecordTypeOneTime      RecordType = "one_time"
	RecordTypeSubscription RecordType = "subscription"
)

type RecordStatus string

const (
	RecordStatusPending        RecordStatus = "pending"
	RecordStatusCompleted      RecordStatus = "completed"
	RecordStatusFailed         RecordStatus = "failed"
	RecordStatusCanceled       RecordStatus = "canceled"
	RecordStatusRequiresAction RecordStatus = "requires_action"
)

// BillingRecord is the local ledger row for one gateway payment.
type BillingRecord struct {
	ID                snowflake.ID      `json:"id" gorm:"primaryKey"`
	UserID            snowflake.ID      `json:"user_id" gorm:"not null;index"`
	ExternalPaymentID string            `json:"external_payment_id" gorm:"type:text;not null;uniqueIndex"`
	Type              RecordType        `json:"type" gorm:"type:text;not null"`
	Status            RecordStatus      `json:"status" gorm:"type:text;not null"`
	Amount            int64             `json:"amount" gorm:"not null"`
	Currency          string            `json:"currency" gorm:"type:varchar(3);not null"`
	Metadata          datatypes.JSONMap `json:"metadata"`
	CreatedAt         time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"not null"`
}

func (BillingRecord) TableName() string { return "billing_records" }

// WebhookEvent records a gateway event id that has been fully applied.
type WebhookEvent struct {
	ID          string    `gorm:"primaryKey;type:text"`
	Type        string    `gorm:"type:text;not null"`
	ProcessedAt time.Time `gorm:"not null"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

const SettingsID = 1

// PaymentSettings is the singleton site_settings row. Secrets are vault envelopes.
type PaymentSettings struct {
	ID                   int       `gorm:"primaryKey;autoIncrement:false"`
	StripeSecretKey      []byte    `gorm:"column:stripe_secret_key"`
	StripePublishableKey string    `gorm:"column:stripe_publishable_key;not null;default:''"`
	StripeWebhookSecret  []byte    `gorm:"column:stripe_webhook_secret"`
	StripeTestMode       bool      `gorm:"column:stripe_test_mode;not null;default:true"`
	UpdatedAt            time.Time `gorm:"not null"`
}

func (PaymentSettings) TableName() string { return "site_settings" }

// Metadata keys written on billing records.
const (
	MetaUserID        = "userId"
	MetaPlanID        = "planId"
	MetaGatewayStatus = "gateway_status"
	MetaChargeID      = "charge_id"
	MetaCompletedAt   = "completed_at"
	MetaFailureReason = "failure_reason"
	MetaNextAction    = "next_action"
)
