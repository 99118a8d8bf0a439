package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"github.com/railzwaylabs/modelrail/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Creds    domain.CredentialStore
	Prober   domain.Prober
	Notifier domain.FailureNotifier `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	creds    domain.CredentialStore
	scorer   *Scorer
	notifier domain.FailureNotifier
}

func NewService(p Params) domain.Service {
	return newService(p)
}

func newService(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("aiaccount.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		creds:    p.Creds,
		scorer:   NewScorer(p.Creds, p.Prober, p.Clock, p.Log),
		notifier: p.Notifier,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	provider := domain.Provider(strings.ToLower(strings.TrimSpace(string(req.Provider))))
	if !provider.Valid() {
		return nil, domain.ErrInvalidProvider
	}
	if strings.TrimSpace(req.Credential) == "" {
		return nil, domain.ErrMissingCredential
	}

	sealed, err := s.creds.Seal(req.Credential)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	account := &domain.Account{
		ID:                   s.genID.Generate().String(),
		Name:                 name,
		Provider:             provider,
		EncryptedCredentials: sealed,
		Status:               domain.AccountStatusActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repo.Insert(ctx, s.db, account); err != nil {
		return nil, err
	}

	s.log.Info("ai account created", zap.String("account_id", account.ID), zap.String("provider", string(provider)))
	return account, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, s.db, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Account, error) {
	return s.repo.List(ctx, s.db)
}
