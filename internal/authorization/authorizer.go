package authorization

import (
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("authorization",
	fx.Provide(NewGormAuthorizer),
)

var ErrForbidden = errors.New("forbidden")

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (p.act == "*" || r.act == p.act)
`

// defaultPolicies grant admin the account and plan surfaces; payment settings
// are reserved for super_admin, which inherits everything admin has.
var defaultPolicies = [][]string{
	{RoleAdmin, "/api/admin/ai-accounts", "*"},
	{RoleAdmin, "/api/admin/ai-accounts/*", "*"},
	{RoleAdmin, "/api/admin/plans", "*"},
	{RoleSuperAdmin, "/api/admin/settings/*", "*"},
}

var defaultGroupings = [][]string{
	{RoleSuperAdmin, RoleAdmin},
}

type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
	log      *zap.Logger
}

// NewGormAuthorizer persists policies in the casbin_rule table.
func NewGormAuthorizer(db *gorm.DB, log *zap.Logger) (*Authorizer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("casbin adapter: %w", err)
	}
	return NewAuthorizer(adapter, log)
}

// NewAuthorizer builds an authorizer over adapter; a nil adapter keeps
// policies in memory.
func NewAuthorizer(adapter persist.Adapter, log *zap.Logger) (*Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	var enforcer *casbin.SyncedEnforcer
	if adapter != nil {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}

	return &Authorizer{enforcer: enforcer, log: log.Named("authorization")}, nil
}

// SeedDefaultPolicies adds the built-in role policies if they are missing.
func (a *Authorizer) SeedDefaultPolicies() error {
	for _, p := range defaultPolicies {
		if _, err := a.enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return fmt.Errorf("seed policy %v: %w", p, err)
		}
	}
	for _, g := range defaultGroupings {
		if _, err := a.enforcer.AddGroupingPolicy(g[0], g[1]); err != nil {
			return fmt.Errorf("seed grouping %v: %w", g, err)
		}
	}
	a.log.Info("authorization policies ensured")
	return nil
}

// Authorize returns ErrForbidden when role may not perform method on path.
func (a *Authorizer) Authorize(role, path, method string) error {
	ok, err := a.enforcer.Enforce(role, path, method)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
