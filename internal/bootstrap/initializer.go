package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	accountdomain "github.com/railzwaylabs/modelrail/internal/account/domain"
	"github.com/railzwaylabs/modelrail/internal/authorization"
	billingdomain "github.com/railzwaylabs/modelrail/internal/billing/domain"
	"github.com/railzwaylabs/modelrail/internal/config"
	subscriptiondomain "github.com/railzwaylabs/modelrail/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg           config.Config
	Log           *zap.Logger
	Accounts      accountdomain.Service
	Authorizer    *authorization.Authorizer
	Settings      billingdomain.SettingsService
	Subscriptions subscriptiondomain.Service
}

// Initializer seeds first-run system state exactly once per process. The
// first caller runs the steps; concurrent callers wait for it and later
// callers get the stored outcome.
type Initializer struct {
	log   *zap.Logger
	steps []step

	started atomic.Bool
	done    chan struct{}
	err     error
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

func NewInitializer(p Params) *Initializer {
	ini := &Initializer{
		log:  p.Log.Named("bootstrap.initializer"),
		done: make(chan struct{}),
	}

	admin := p.Cfg.Bootstrap
	if strings.TrimSpace(admin.AdminEmail) != "" && admin.AdminPassword != "" {
		ini.steps = append(ini.steps, step{name: "admin_user", run: func(ctx context.Context) error {
			_, err := p.Accounts.EnsureUser(ctx, admin.AdminEmail, admin.AdminPassword, accountdomain.RoleSuperAdmin)
			return err
		}})
	}
	ini.steps = append(ini.steps,
		step{name: "authorization_policies", run: func(context.Context) error {
			return p.Authorizer.SeedDefaultPolicies()
		}},
		step{name: "payment_settings", run: p.Settings.EnsureRow},
	)
	if admin.DefaultPlans {
		ini.steps = append(ini.steps, step{name: "default_plans", run: p.Subscriptions.EnsureDefaultPlans})
	}
	return ini
}

func newInitializer(log *zap.Logger, steps ...step) *Initializer {
	return &Initializer{log: log, steps: steps, done: make(chan struct{})}
}

// Ensure blocks until initialization has finished or ctx ends.
func (i *Initializer) Ensure(ctx context.Context) error {
	if i.started.CompareAndSwap(false, true) {
		// Steps run detached from the first caller's cancellation.
		i.run(context.WithoutCancel(ctx))
	}

	select {
	case <-i.done:
		return i.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done reports whether initialization has completed.
func (i *Initializer) Done() bool {
	select {
	case <-i.done:
		return true
	default:
		return false
	}
}

func (i *Initializer) run(ctx context.Context) {
	defer close(i.done)

	var errs []error
	for _, s := range i.steps {
		if err := s.run(ctx); err != nil {
			i.log.Error("initialization step failed", zap.String("step", s.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		i.log.Debug("initialization step completed", zap.String("step", s.name))
	}
	i.err = errors.Join(errs...)
	if i.err == nil {
		i.log.Info("system initialized", zap.Int("steps", len(i.steps)))
	}
}
