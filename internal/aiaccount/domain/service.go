package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrEmptyAccountIDs   = errors.New("empty_account_ids")
	ErrAccountNotFound   = errors.New("account_not_found")
	ErrInvalidProvider   = errors.New("invalid_provider")
	ErrInvalidName       = errors.New("invalid_name")
	ErrMissingCredential = errors.New("missing_credential")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Account, error)
	List(ctx context.Context, db *gorm.DB) ([]Account, error)
	ApplyHealthUpdate(ctx context.Context, db *gorm.DB, id string, update HealthUpdate) error
}

// CredentialStore opens and seals the provider secret kept on an Account.
type CredentialStore interface {
	Seal(plaintext string) ([]byte, error)
	Decrypt(blob []byte) (string, error)
}

type Prober interface {
	Probe(ctx context.Context, provider Provider, credential string) ProbeResult
}

// FailureNotifier is told about accounts that ended a batch in failed state.
type FailureNotifier interface {
	AccountsFailed(ctx context.Context, results []HealthCheckResult) error
}

type CreateAccountRequest struct {
	Name       string   `json:"name"`
	Provider   Provider `json:"provider"`
	Credential string   `json:"credential"`
}

type Service interface {
	Create(ctx context.Context, req CreateAccountRequest) (*Account, error)
	Get(ctx context.Context, id string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	BatchCheck(ctx context.Context, ids []string) (*BatchResult, error)
}
