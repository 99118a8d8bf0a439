package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/railzwaylabs/modelrail/internal/clock"
	"github.com/railzwaylabs/modelrail/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

var defaultPlans = []domain.CreatePlanRequest{
	{Name: "Monthly", Description: "30 days of API access", Price: 9.99, Currency: "USD", DurationDays: 30},
	{Name: "Quarterly", Description: "90 days of API access", Price: 26.99, Currency: "USD", DurationDays: 90},
	{Name: "Yearly", Description: "365 days of API access", Price: 99, Currency: "USD", DurationDays: 365},
}

func (s *Service) ListActive(ctx context.Context) ([]domain.Plan, error) {
	return s.repo.ListActivePlans(ctx, s.db)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Plan, error) {
	plan, err := s.repo.FindPlan(ctx, s.db, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.Active {
		return nil, domain.ErrPlanNotFound
	}
	return plan, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreatePlanRequest) (*domain.Plan, error) {
	plan, err := s.buildPlan(ctx, req)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindPlan(ctx, s.db, plan.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrPlanAlreadyExists
	}

	if err := s.repo.InsertPlan(ctx, s.db, plan); err != nil {
		return nil, err
	}
	s.log.Info("plan created", zap.String("plan_id", plan.ID), zap.Int("duration_days", plan.DurationDays))
	return plan, nil
}

func (s *Service) EnsureDefaultPlans(ctx context.Context) error {
	for _, req := range defaultPlans {
		_, err := s.Create(ctx, req)
		if err != nil && !errors.Is(err, domain.ErrPlanAlreadyExists) {
			return fmt.Errorf("seed plan %s: %w", req.Name, err)
		}
	}
	return nil
}

// ExtendFromPayment overwrites the user's plan with now + plan duration.
// A missing plan id, an unknown plan or a failed lookup is skipped silently.
// The lookup runs in a nested transaction, which becomes a savepoint when tx
// is already a transaction, so a failed lookup leaves tx usable.
func (s *Service) ExtendFromPayment(ctx context.Context, tx *gorm.DB, grant domain.PaymentGrant) (bool, error) {
	planID := readString(grant.Metadata, domain.MetadataPlanID)
	if planID == "" {
		return false, nil
	}

	var plan *domain.Plan
	err := tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		var err error
		plan, err = s.repo.FindPlan(ctx, sp, planID)
		return err
	})
	if err != nil {
		s.log.Warn("plan lookup failed; subscription not updated",
			zap.String("plan_id", planID),
			zap.Error(err))
		return false, nil
	}
	if plan == nil {
		s.log.Info("payment references unknown plan", zap.String("plan_id", planID))
		return false, nil
	}

	now := s.clock.Now(ctx)
	expiresAt := now.Add(time.Duration(plan.DurationDays) * 24 * time.Hour)

	rows, err := s.repo.SetUserPlan(ctx, tx, grant.UserID, plan.ID, expiresAt, now)
	if err != nil {
		return false, err
	}
	if rows == 0 {
		s.log.Warn("payment user not found", zap.String("user_id", grant.UserID.String()))
		return false, nil
	}

	s.log.Info("subscription updated",
		zap.String("user_id", grant.UserID.String()),
		zap.String("plan_id", plan.ID),
		zap.Time("expires_at", expiresAt))
	return true, nil
}

func (s *Service) buildPlan(ctx context.Context, req domain.CreatePlanRequest) (*domain.Plan, error) {
	name := strings.TrimSpace(req.Name)
	id := slug.Make(name)
	if name == "" || id == "" {
		return nil, domain.ErrInvalidPlanName
	}
	if req.Price <= 0 {
		return nil, domain.ErrInvalidPlanPrice
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, domain.ErrInvalidPlanCurrency
	}
	if req.DurationDays <= 0 {
		return nil, domain.ErrInvalidPlanDuration
	}

	now := s.clock.Now(ctx)
	return &domain.Plan{
		ID:           id,
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		Price:        req.Price,
		Currency:     currency,
		DurationDays: req.DurationDays,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func readString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
