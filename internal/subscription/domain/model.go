package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrPlanNotFound        = errors.New("plan_not_found")
	ErrPlanAlreadyExists   = errors.New("plan_already_exists")
	ErrInvalidPlanName     = errors.New("invalid_plan_name")
	ErrInvalidPlanPrice    = errors.New("invalid_plan_price")
	ErrInvalidPlanCurrency = errors.New("invalid_plan_currency")
	ErrInvalidPlanDuration = errors.New("invalid_plan_duration")
)

// MetadataPlanID is the payment metadata key naming the purchased plan.
const MetadataPlanID = "planId"

type Plan struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	Name         string    `json:"name" gorm:"type:text;not null"`
	Description  string    `json:"description" gorm:"type:text;not null;default:''"`
	Price        float64   `json:"price" gorm:"not null"`
	Currency     string    `json:"currency" gorm:"type:varchar(3);not null"`
	DurationDays int       `json:"duration_days" gorm:"not null"`
	Active       bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null"`
}

func (Plan) TableName() string { return "plans" }

// PaymentGrant is a completed payment that may carry a plan purchase.
type PaymentGrant struct {
	UserID   snowflake.ID
	Metadata map[string]any
}

type CreatePlanRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	DurationDays int     `json:"duration_days"`
}

type Repository interface {
	InsertPlan(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindPlan(ctx context.Context, db *gorm.DB, id string) (*Plan, error)
	ListActivePlans(ctx context.Context, db *gorm.DB) ([]Plan, error)
	SetUserPlan(ctx context.Context, db *gorm.DB, userID snowflake.ID, planID string, expiresAt, now time.Time) (int64, error)
}

type Service interface {
	ListActive(ctx context.Context) ([]Plan, error)
	Get(ctx context.Context, id string) (*Plan, error)
	Create(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	EnsureDefaultPlans(ctx context.Context) error
	// ExtendFromPayment runs inside tx so the plan change commits with the
	// billing update. It reports whether a plan was applied.
	ExtendFromPayment(ctx context.Context, tx *gorm.DB, grant PaymentGrant) (bool, error)
}
