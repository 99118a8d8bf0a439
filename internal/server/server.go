package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accountdomain "github.com/railzwaylabs/modelrail/internal/account/domain"
	aiaccountdomain "github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"github.com/railzwaylabs/modelrail/internal/auth"
	"github.com/railzwaylabs/modelrail/internal/authorization"
	billingdomain "github.com/railzwaylabs/modelrail/internal/billing/domain"
	"github.com/railzwaylabs/modelrail/internal/billing/webhook"
	"github.com/railzwaylabs/modelrail/internal/bootstrap"
	"github.com/railzwaylabs/modelrail/internal/config"
	subscriptiondomain "github.com/railzwaylabs/modelrail/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(RegisterLifecycle),
)

type Params struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	Accounts    accountdomain.Service
	Tokens      *auth.TokenIssuer
	Authorizer  *authorization.Authorizer
	Initializer *bootstrap.Initializer
	Plans       subscriptiondomain.Service
	Checkout    billingdomain.CheckoutService
	Settings    billingdomain.SettingsService
	Webhooks    *webhook.Service
	AIAccounts  aiaccountdomain.Service
}

type webhookHandler interface {
	Handle(ctx context.Context, payload []byte, sigHeader string) error
}

type Server struct {
	cfg    config.Config
	log    *zap.Logger
	db     *gorm.DB
	engine *gin.Engine

	accountSvc   accountdomain.Service
	tokens       *auth.TokenIssuer
	authorizer   *authorization.Authorizer
	initializer  initializer
	planSvc      subscriptiondomain.Service
	checkoutSvc  billingdomain.CheckoutService
	settingsSvc  billingdomain.SettingsService
	webhooks     webhookHandler
	aiAccountSvc aiaccountdomain.Service
}

func NewServer(p Params) *Server {
	if p.Cfg.App.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		db:           p.DB,
		accountSvc:   p.Accounts,
		tokens:       p.Tokens,
		authorizer:   p.Authorizer,
		initializer:  p.Initializer,
		planSvc:      p.Plans,
		checkoutSvc:  p.Checkout,
		settingsSvc:  p.Settings,
		webhooks:     p.Webhooks,
		aiAccountSvc: p.AIAccounts,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(s.log))

	r.GET("/healthz", s.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/webhooks/stripe", s.StripeWebhook)

	api := r.Group("/api", s.EnsureInitialized())
	api.POST("/auth/login", s.Login)
	api.GET("/plans", s.ListPlans)

	user := api.Group("", s.RequireAuth())
	user.GET("/me", s.Me)
	user.POST("/billing/payment-intents", s.CreatePaymentIntent)
	user.POST("/billing/payment-intents/:id/confirm", s.ConfirmPaymentIntent)
	user.GET("/billing/records", s.ListBillingRecords)
	user.GET("/billing/records/:id", s.GetBillingRecord)
	user.GET("/billing/records/:id/receipt", s.GetBillingReceipt)

	admin := user.Group("/admin", s.RequirePermission())
	admin.GET("/ai-accounts", s.ListAIAccounts)
	admin.POST("/ai-accounts", s.CreateAIAccount)
	admin.GET("/ai-accounts/:id", s.GetAIAccount)
	admin.POST("/ai-accounts/health-check", s.BatchHealthCheck)
	admin.POST("/plans", s.CreatePlan)
	admin.GET("/settings/payment", s.GetPaymentSettings)
	admin.PUT("/settings/payment", s.UpdatePaymentSettings)

	s.engine = r
}

// RegisterLifecycle binds the HTTP listener to the fx lifecycle.
func RegisterLifecycle(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:         s.cfg.HTTP.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// Healthz
// GET /healthz
func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		s.log.Warn("database ping failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
