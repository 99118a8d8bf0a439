package service

import (
	"context"
	"strings"
	"time"

	"github.com/railzwaylabs/modelrail/internal/billing/domain"
	"github.com/railzwaylabs/modelrail/internal/clock"
	"github.com/railzwaylabs/modelrail/internal/security/vault"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SettingsParams struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
	Vault vault.Provider
}

type SettingsService struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
	vault vault.Provider
}

func NewSettingsService(p SettingsParams) domain.SettingsService {
	return &SettingsService{
		db:    p.DB,
		log:   p.Log.Named("billing.settings"),
		clock: p.Clock,
		repo:  p.Repo,
		vault: p.Vault,
	}
}

func (s *SettingsService) Get(ctx context.Context) (*domain.SettingsView, error) {
	row, err := s.repo.LoadSettings(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return &domain.SettingsView{TestMode: true}, nil
	}
	return s.view(row), nil
}

func (s *SettingsService) Update(ctx context.Context, req domain.UpdateSettingsRequest) (*domain.SettingsView, error) {
	row, err := s.repo.LoadSettings(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &domain.PaymentSettings{StripeTestMode: true}
	}

	if req.SecretKey != nil {
		sealed, err := s.sealKey(*req.SecretKey, "sk_", "rk_")
		if err != nil {
			return nil, err
		}
		row.StripeSecretKey = sealed
	}
	if req.WebhookSecret != nil {
		sealed, err := s.sealKey(*req.WebhookSecret, "whsec_")
		if err != nil {
			return nil, err
		}
		row.StripeWebhookSecret = sealed
	}
	if req.PublishableKey != nil {
		key := strings.TrimSpace(*req.PublishableKey)
		if key != "" && !strings.HasPrefix(key, "pk_") {
			return nil, domain.ErrInvalidSettings
		}
		row.StripePublishableKey = key
	}
	if req.TestMode != nil {
		row.StripeTestMode = *req.TestMode
	}

	row.UpdatedAt = s.clock.Now(ctx)
	if err := s.repo.SaveSettings(ctx, s.db, row); err != nil {
		return nil, err
	}

	s.log.Info("payment settings updated",
		zap.Bool("secret_key_set", len(row.StripeSecretKey) > 0),
		zap.Bool("webhook_secret_set", len(row.StripeWebhookSecret) > 0),
		zap.Bool("test_mode", row.StripeTestMode),
	)
	return s.view(row), nil
}

// EnsureRow creates the settings row in test mode when it is missing.
func (s *SettingsService) EnsureRow(ctx context.Context) error {
	row, err := s.repo.LoadSettings(ctx, s.db)
	if err != nil {
		return err
	}
	if row != nil {
		return nil
	}
	return s.repo.SaveSettings(ctx, s.db, &domain.PaymentSettings{
		StripeTestMode: true,
		UpdatedAt:      s.clock.Now(ctx),
	})
}

// sealKey encrypts value. An empty value clears the stored secret.
func (s *SettingsService) sealKey(value string, prefixes ...string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if !hasAnyPrefix(value, prefixes...) {
		return nil, domain.ErrInvalidSettings
	}
	return s.vault.Encrypt([]byte(value))
}

func (s *SettingsService) view(row *domain.PaymentSettings) *domain.SettingsView {
	v := &domain.SettingsView{
		PublishableKey:   row.StripePublishableKey,
		TestMode:         row.StripeTestMode,
		SecretKeySet:     len(row.StripeSecretKey) > 0,
		WebhookSecretSet: len(row.StripeWebhookSecret) > 0,
	}
	if !row.UpdatedAt.IsZero() {
		v.UpdatedAt = row.UpdatedAt.UTC().Format(time.RFC3339)
	}
	v.SecretKey = s.masked(row.StripeSecretKey)
	v.WebhookSecret = s.masked(row.StripeWebhookSecret)
	return v
}

func (s *SettingsService) masked(sealed []byte) string {
	if len(sealed) == 0 {
		return ""
	}
	plain, err := s.vault.Decrypt(sealed)
	if err != nil {
		s.log.Warn("stored payment secret cannot be decrypted", zap.Error(err))
		return maskedPlaceholder
	}
	return MaskSecret(string(plain))
}

const maskedPlaceholder = "********"

// MaskSecret keeps the key prefix and the last four characters.
func MaskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	if len(secret) <= 12 {
		return maskedPlaceholder
	}
	prefix := ""
	if i := strings.LastIndex(secret[:len(secret)-4], "_"); i >= 0 && i < 9 {
		prefix = secret[:i+1]
	}
	return prefix + maskedPlaceholder + secret[len(secret)-4:]
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
