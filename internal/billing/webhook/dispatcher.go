package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/railzwaylabs/modelrail/internal/archive"
	"github.com/railzwaylabs/modelrail/internal/billing/domain"
	billingservice "github.com/railzwaylabs/modelrail/internal/billing/service"
	"github.com/railzwaylabs/modelrail/internal/clock"
	"github.com/railzwaylabs/modelrail/internal/observability"
	subscriptiondomain "github.com/railzwaylabs/modelrail/internal/subscription/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v76"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EventType string

const (
	EventPaymentIntentSucceeded      EventType = "payment_intent.succeeded"
	EventPaymentIntentFailed         EventType = "payment_intent.payment_failed"
	EventPaymentIntentCanceled       EventType = "payment_intent.canceled"
	EventPaymentIntentRequiresAction EventType = "payment_intent.requires_action"
	EventCustomerCreated             EventType = "customer.created"
	EventCustomerUpdated             EventType = "customer.updated"
	EventInvoicePaymentSucceeded     EventType = "invoice.payment_succeeded"
	EventInvoicePaymentFailed        EventType = "invoice.payment_failed"
)

// handlerFunc applies one event inside the dispatch transaction. A nil
// handlerFunc marks an event that is acknowledged and logged only.
type handlerFunc func(ctx context.Context, tx *gorm.DB, event stripe.Event) error

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Repo          domain.Repository
	Gateway       domain.PaymentGateway
	Subscriptions subscriptiondomain.Service
	Redis         *redis.Client    `optional:"true"`
	Archiver      archive.Archiver `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	repo          domain.Repository
	gateway       domain.PaymentGateway
	reconciler    *billingservice.Reconciler
	subscriptions subscriptiondomain.Service
	locker        EventLocker
	archiver      archive.Archiver
	handlers      map[EventType]handlerFunc
}

func NewService(p Params) *Service {
	archiver := p.Archiver
	if archiver == nil {
		archiver = archive.Noop{}
	}

	s := &Service{
		db:            p.DB,
		log:           p.Log.Named("billing.webhook"),
		clock:         p.Clock,
		repo:          p.Repo,
		gateway:       p.Gateway,
		reconciler:    billingservice.NewReconciler(p.Repo, p.Clock, p.Log),
		subscriptions: p.Subscriptions,
		locker:        NewEventLocker(p.Redis),
		archiver:      archiver,
	}
	s.handlers = map[EventType]handlerFunc{
		EventPaymentIntentSucceeded:      s.onPaymentSucceeded,
		EventPaymentIntentFailed:         s.onPaymentFailed,
		EventPaymentIntentCanceled:       s.onPaymentCanceled,
		EventPaymentIntentRequiresAction: s.onPaymentRequiresAction,
		EventCustomerCreated:             nil,
		EventCustomerUpdated:             nil,
		EventInvoicePaymentSucceeded:     nil,
		EventInvoicePaymentFailed:        nil,
	}
	return s
}

// Handle verifies and applies one webhook delivery. A nil error means the
// delivery should be acknowledged, including unknown and duplicate events.
func (s *Service) Handle(ctx context.Context, payload []byte, sigHeader string) error {
	ctx, span := otel.Tracer("modelrail/billing").Start(ctx, "webhook.dispatch")
	defer span.End()

	if strings.TrimSpace(sigHeader) == "" {
		span.SetStatus(codes.Error, "missing signature")
		return domain.ErrMissingSignature
	}

	event, err := s.gateway.ConstructEvent(ctx, payload, sigHeader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verify")
		return err
	}

	eventType := EventType(event.Type)
	span.SetAttributes(
		attribute.String("webhook.event_id", event.ID),
		attribute.String("webhook.event_type", string(eventType)),
	)

	handler, known := s.handlers[eventType]
	if !known || handler == nil {
		if known {
			s.log.Info("webhook event acknowledged", zap.String("event_id", event.ID), zap.String("type", string(eventType)))
		} else {
			s.log.Info("unhandled webhook event", zap.String("event_id", event.ID), zap.String("type", string(eventType)))
		}
		observability.WebhookEvents.WithLabelValues(string(eventType), observability.OutcomeIgnored).Inc()
		return nil
	}

	release, acquired, err := s.locker.Acquire(ctx, event.ID)
	if err != nil {
		return s.failed(span, eventType, event.ID, err)
	}
	if !acquired {
		s.log.Warn("webhook event already in flight", zap.String("event_id", event.ID))
		return domain.ErrEventInProgress
	}
	defer release()

	duplicate := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen, err := s.repo.WebhookEventExists(ctx, tx, event.ID)
		if err != nil {
			return err
		}
		if seen {
			duplicate = true
			return nil
		}
		if err := handler(ctx, tx, event); err != nil {
			return err
		}
		return s.repo.InsertWebhookEvent(ctx, tx, &domain.WebhookEvent{
			ID:          event.ID,
			Type:        string(eventType),
			ProcessedAt: s.clock.Now(ctx),
		})
	})
	if err != nil {
		return s.failed(span, eventType, event.ID, err)
	}

	if duplicate {
		s.log.Info("duplicate webhook event skipped", zap.String("event_id", event.ID), zap.String("type", string(eventType)))
		observability.WebhookEvents.WithLabelValues(string(eventType), observability.OutcomeDuplicate).Inc()
		return nil
	}

	observability.WebhookEvents.WithLabelValues(string(eventType), observability.OutcomeProcessed).Inc()
	s.archive(ctx, event.ID, payload)
	return nil
}

func (s *Service) failed(span trace.Span, eventType EventType, eventID string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "dispatch")
	observability.WebhookEvents.WithLabelValues(string(eventType), observability.OutcomeFailed).Inc()
	s.log.Error("webhook event processing failed",
		zap.String("event_id", eventID),
		zap.String("type", string(eventType)),
		zap.Error(err),
	)
	return err
}

func (s *Service) archive(ctx context.Context, eventID string, payload []byte) {
	key, err := s.archiver.Put(ctx, eventID, maskPayload(payload))
	if err != nil {
		s.log.Warn("failed to archive webhook payload", zap.String("event_id", eventID), zap.Error(err))
		return
	}
	if key != "" {
		s.log.Debug("webhook payload archived", zap.String("event_id", eventID), zap.String("key", key))
	}
}

func (s *Service) onPaymentSucceeded(ctx context.Context, tx *gorm.DB, event stripe.Event) error {
	pi, err := decodePaymentIntent(event)
	if err != nil {
		return err
	}

	patch := map[string]any{
		domain.MetaGatewayStatus: string(pi.Status),
		domain.MetaCompletedAt:   s.clock.Now(ctx).Format(time.RFC3339),
	}
	if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
		patch[domain.MetaChargeID] = pi.LatestCharge.ID
	}

	record, err := s.reconciler.Apply(ctx, tx, pi.ID, domain.RecordStatusCompleted, patch)
	if err != nil || record == nil {
		return err
	}
	if record.Type != domain.RecordTypeSubscription {
		return nil
	}

	applied, err := s.subscriptions.ExtendFromPayment(ctx, tx, subscriptiondomain.PaymentGrant{
		UserID:   record.UserID,
		Metadata: record.Metadata,
	})
	if err != nil {
		return err
	}
	if !applied {
		s.log.Info("payment carried no applicable plan", zap.String("record_id", record.ID.String()))
	}
	return nil
}

func (s *Service) onPaymentFailed(ctx context.Context, tx *gorm.DB, event stripe.Event) error {
	pi, err := decodePaymentIntent(event)
	if err != nil {
		return err
	}

	reason := "unknown"
	if pi.LastPaymentError != nil {
		switch {
		case pi.LastPaymentError.Msg != "":
			reason = pi.LastPaymentError.Msg
		case pi.LastPaymentError.Code != "":
			reason = string(pi.LastPaymentError.Code)
		}
	}

	_, err = s.reconciler.Apply(ctx, tx, pi.ID, domain.RecordStatusFailed, map[string]any{
		domain.MetaGatewayStatus: string(pi.Status),
		domain.MetaFailureReason: reason,
	})
	return err
}

func (s *Service) onPaymentCanceled(ctx context.Context, tx *gorm.DB, event stripe.Event) error {
	pi, err := decodePaymentIntent(event)
	if err != nil {
		return err
	}
	_, err = s.reconciler.Apply(ctx, tx, pi.ID, domain.RecordStatusCanceled, map[string]any{
		domain.MetaGatewayStatus: string(pi.Status),
	})
	return err
}

func (s *Service) onPaymentRequiresAction(ctx context.Context, tx *gorm.DB, event stripe.Event) error {
	pi, err := decodePaymentIntent(event)
	if err != nil {
		return err
	}

	patch := map[string]any{domain.MetaGatewayStatus: string(pi.Status)}
	if pi.NextAction != nil && pi.NextAction.Type != "" {
		patch[domain.MetaNextAction] = string(pi.NextAction.Type)
	}
	_, err = s.reconciler.Apply(ctx, tx, pi.ID, domain.RecordStatusRequiresAction, patch)
	return err
}

func decodePaymentIntent(event stripe.Event) (*stripe.PaymentIntent, error) {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, domain.ErrInvalidEvent
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, errors.Join(domain.ErrInvalidEvent, err)
	}
	if strings.TrimSpace(pi.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}
	return &pi, nil
}
