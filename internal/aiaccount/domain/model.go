package domain

import (
	"time"
)

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusDisabled AccountStatus = "disabled"
)

// Account is an upstream AI provider credential resold by the site.
type Account struct {
	ID                   string        `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name                 string        `json:"name" gorm:"type:text;not null"`
	Provider             Provider      `json:"provider" gorm:"type:text;not null"`
	EncryptedCredentials []byte        `json:"-" gorm:"column:encrypted_credentials;not null"`
	Status               AccountStatus `json:"status" gorm:"type:text;not null;default:active"`
	HealthScore          int           `json:"health_score" gorm:"not null;default:0"`
	ErrorCount24h        int           `json:"error_count_24h" gorm:"column:error_count_24h;not null;default:0"`
	TotalRequests        int64         `json:"total_requests" gorm:"not null;default:0"`
	LastHealthCheckAt    *time.Time    `json:"last_health_check_at"`
	LastErrorAt          *time.Time    `json:"last_error_at"`
	CreatedAt            time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt            time.Time     `json:"updated_at" gorm:"not null"`
}

func (Account) TableName() string { return "ai_accounts" }

type HealthStatus string

const (
	HealthStatusHealthy HealthStatus = "healthy"
	HealthStatusWarning HealthStatus = "warning"
	HealthStatusFailed  HealthStatus = "failed"
)

type HealthCheckResult struct {
	AccountID    string       `json:"accountId"`
	AccountName  string       `json:"accountName"`
	Status       HealthStatus `json:"status"`
	HealthScore  int          `json:"healthScore"`
	Message      string       `json:"message"`
	CheckedAt    time.Time    `json:"timestamp"`
	ResponseTime int64        `json:"responseTime"`
}

type BatchResult struct {
	TotalChecked int                 `json:"totalChecked"`
	HealthyCount int                 `json:"healthyCount"`
	WarningCount int                 `json:"warningCount"`
	FailedCount  int                 `json:"failedCount"`
	Results      []HealthCheckResult `json:"results"`
	Message      string              `json:"message"`
}

// ProbeResult is the outcome of a single live request against a provider.
type ProbeResult struct {
	Success      bool
	ResponseTime time.Duration
	StatusCode   int
	Message      string
}

// HealthUpdate is what a finished check writes back to the account row.
type HealthUpdate struct {
	HealthScore       int
	LastHealthCheckAt time.Time
	ErrorCount24h     *int
	LastErrorAt       *time.Time
}
