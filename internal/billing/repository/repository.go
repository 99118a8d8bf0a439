package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/modelrail/internal/billing/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const recordColumns = `id, user_id, external_payment_id, type, status, amount, currency, metadata, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rec *domain.BillingRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO billing_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.UserID,
		rec.ExternalPaymentID,
		rec.Type,
		rec.Status,
		rec.Amount,
		rec.Currency,
		rec.Metadata,
		rec.CreatedAt,
		rec.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BillingRecord, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.BillingRecord, error) {
	return r.findOne(ctx, db, "external_payment_id = ?", externalID)
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.BillingRecord, error) {
	var records []domain.BillingRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+`
		 FROM billing_records
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.RecordStatus, metadata map[string]any, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE billing_records SET status = ?, metadata = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN (?, ?)`,
		status, datatypes.JSONMap(metadata), now, id,
		domain.RecordStatusCompleted, domain.RecordStatusCanceled,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) WebhookEventExists(ctx context.Context, db *gorm.DB, eventID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM webhook_events WHERE id = ?`,
		eventID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InsertWebhookEvent(ctx context.Context, db *gorm.DB, event *domain.WebhookEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO webhook_events (id, type, processed_at) VALUES (?, ?, ?)`,
		event.ID, event.Type, event.ProcessedAt,
	).Error
}

func (r *repo) LoadSettings(ctx context.Context, db *gorm.DB) (*domain.PaymentSettings, error) {
	var s domain.PaymentSettings
	res := db.WithContext(ctx).Raw(
		`SELECT id, stripe_secret_key, stripe_publishable_key, stripe_webhook_secret, stripe_test_mode, updated_at
		 FROM site_settings
		 WHERE id = ?
		 LIMIT 1`,
		domain.SettingsID,
	).Scan(&s)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) SaveSettings(ctx context.Context, db *gorm.DB, s *domain.PaymentSettings) error {
	s.ID = domain.SettingsID
	return db.WithContext(ctx).Exec(
		`INSERT INTO site_settings (id, stripe_secret_key, stripe_publishable_key, stripe_webhook_secret, stripe_test_mode, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   stripe_secret_key = excluded.stripe_secret_key,
		   stripe_publishable_key = excluded.stripe_publishable_key,
		   stripe_webhook_secret = excluded.stripe_webhook_secret,
		   stripe_test_mode = excluded.stripe_test_mode,
		   updated_at = excluded.updated_at`,
		s.ID,
		s.StripeSecretKey,
		s.StripePublishableKey,
		s.StripeWebhookSecret,
		s.StripeTestMode,
		s.UpdatedAt,
	).Error
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.BillingRecord, error) {
	var rec domain.BillingRecord
	res := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+` FROM billing_records WHERE `+where+` LIMIT 1`,
		arg,
	).Scan(&rec)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &rec, nil
}
