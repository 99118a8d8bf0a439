package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/railzwaylabs/modelrail/internal/account/domain"
	"github.com/railzwaylabs/modelrail/internal/billing/domain"
	"github.com/railzwaylabs/modelrail/internal/billing/gateway"
	"github.com/railzwaylabs/modelrail/internal/billing/receipt"
	"github.com/railzwaylabs/modelrail/internal/clock"
	"github.com/railzwaylabs/modelrail/internal/config"
	subscriptiondomain "github.com/railzwaylabs/modelrail/internal/subscription/domain"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CheckoutParams struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Cfg           config.Config
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	Gateway       domain.PaymentGateway
	Accounts      accountdomain.Service
	Subscriptions subscriptiondomain.Service
}

type CheckoutService struct {
	db            *gorm.DB
	log           *zap.Logger
	issuer        string
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	gateway       domain.PaymentGateway
	accounts      accountdomain.Service
	subscriptions subscriptiondomain.Service
	reconciler    *Reconciler
}

func NewCheckoutService(p CheckoutParams) domain.CheckoutService {
	return &CheckoutService{
		db:            p.DB,
		log:           p.Log.Named("billing.checkout"),
		issuer:        p.Cfg.App.Name,
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		gateway:       p.Gateway,
		accounts:      p.Accounts,
		subscriptions: p.Subscriptions,
		reconciler:    NewReconciler(p.Repo, p.Clock, p.Log),
	}
}

// CreatePlanPayment opens a payment intent for planID and records it as a
// pending subscription payment. The webhook completes it.
func (s *CheckoutService) CreatePlanPayment(ctx context.Context, userID snowflake.ID, planID string) (*domain.CheckoutResult, error) {
	plan, err := s.subscriptions.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	user, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	pi, err := s.gateway.CreatePaymentIntent(ctx, domain.PaymentIntentInput{
		Amount:      plan.Price,
		Currency:    plan.Currency,
		CustomerID:  customerID,
		Description: plan.Name,
		Metadata: map[string]string{
			domain.MetaUserID: userID.String(),
			domain.MetaPlanID: plan.ID,
		},
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	record := &domain.BillingRecord{
		ID:                s.genID.Generate(),
		UserID:            userID,
		ExternalPaymentID: pi.ID,
		Type:              domain.RecordTypeSubscription,
		Status:            domain.RecordStatusPending,
		Amount:            gateway.ToMinorUnits(plan.Price, plan.Currency),
		Currency:          strings.ToUpper(plan.Currency),
		Metadata: map[string]any{
			domain.MetaUserID:        userID.String(),
			domain.MetaPlanID:        plan.ID,
			domain.MetaGatewayStatus: string(pi.Status),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		return nil, err
	}

	publishable, err := s.gateway.PublishableKey(ctx)
	if err != nil {
		return nil, err
	}

	s.log.Info("plan payment created",
		zap.String("record_id", record.ID.String()),
		zap.String("external_payment_id", pi.ID),
		zap.String("plan_id", plan.ID),
	)

	return &domain.CheckoutResult{
		Record:         record,
		ClientSecret:   pi.ClientSecret,
		PublishableKey: publishable,
	}, nil
}

// ConfirmPayment confirms a pending intent on behalf of the user. Terminal
// success is left to the payment_intent.succeeded webhook so the plan is
// granted exactly once.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, userID snowflake.ID, externalID, paymentMethod string) (*domain.BillingRecord, error) {
	paymentMethod = strings.TrimSpace(paymentMethod)
	if paymentMethod == "" {
		return nil, domain.ErrInvalidPaymentMethod
	}

	record, err := s.repo.FindByExternalID(ctx, s.db, strings.TrimSpace(externalID))
	if err != nil {
		return nil, err
	}
	if record == nil || record.UserID != userID {
		return nil, domain.ErrRecordNotFound
	}

	pi, err := s.gateway.ConfirmPaymentIntent(ctx, record.ExternalPaymentID, paymentMethod)
	if err != nil {
		return nil, err
	}

	var status domain.RecordStatus
	patch := map[string]any{domain.MetaGatewayStatus: string(pi.Status)}
	switch pi.Status {
	case stripe.PaymentIntentStatusRequiresAction:
		status = domain.RecordStatusRequiresAction
		if pi.NextAction != nil {
			patch[domain.MetaNextAction] = string(pi.NextAction.Type)
		}
	case stripe.PaymentIntentStatusCanceled:
		status = domain.RecordStatusCanceled
	default:
		// The webhook may have moved the record while the gateway call was
		// in flight; return what is stored now.
		return s.repo.FindByID(ctx, s.db, record.ID)
	}

	var updated *domain.BillingRecord
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		updated, err = s.reconciler.Apply(ctx, tx, record.ExternalPaymentID, status, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return s.repo.FindByID(ctx, s.db, record.ID)
	}
	return updated, nil
}

func (s *CheckoutService) ListRecords(ctx context.Context, userID snowflake.ID) ([]domain.BillingRecord, error) {
	return s.repo.ListByUser(ctx, s.db, userID)
}

func (s *CheckoutService) GetRecord(ctx context.Context, userID, id snowflake.ID) (*domain.BillingRecord, error) {
	record, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if record == nil || record.UserID != userID {
		return nil, domain.ErrRecordNotFound
	}
	return record, nil
}

func (s *CheckoutService) Receipt(ctx context.Context, userID, id snowflake.ID) ([]byte, error) {
	record, err := s.GetRecord(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if record.Status != domain.RecordStatusCompleted {
		return nil, domain.ErrReceiptUnavailable
	}

	description := string(record.Type)
	if planID, ok := record.Metadata[domain.MetaPlanID].(string); ok && planID != "" {
		description = planID
		if plan, err := s.subscriptions.Get(ctx, planID); err == nil {
			description = plan.Name
		}
	}

	customer := userID.String()
	if user, err := s.accounts.Get(ctx, userID); err == nil {
		customer = user.Email
	}

	chargeID, _ := record.Metadata[domain.MetaChargeID].(string)
	return receipt.Render(receipt.Receipt{
		Issuer:      s.issuer,
		Number:      record.ID.String(),
		CustomerRef: customer,
		Description: description,
		Amount:      gateway.FromMinorUnits(record.Amount, record.Currency),
		Currency:    record.Currency,
		ChargeID:    chargeID,
		PaidAt:      record.UpdatedAt,
	})
}

func (s *CheckoutService) ensureCustomer(ctx context.Context, user *accountdomain.User) (string, error) {
	if user.StripeCustomerID != nil && strings.TrimSpace(*user.StripeCustomerID) != "" {
		return *user.StripeCustomerID, nil
	}

	cust, err := s.gateway.CreateCustomer(ctx, user.Email, map[string]string{
		domain.MetaUserID: user.ID.String(),
	})
	if err != nil {
		return "", err
	}
	if err := s.accounts.SetStripeCustomerID(ctx, user.ID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}
