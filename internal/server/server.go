package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	auditdomain "github.com/leadwayhq/leadway/internal/audit/domain"
	authdomain "github.com/leadwayhq/leadway/internal/auth/domain"
	"github.com/leadwayhq/leadway/internal/auth/session"
	"github.com/leadwayhq/leadway/internal/authorization"
	billingdomain "github.com/leadwayhq/leadway/internal/billing/domain"
	campaigndomain "github.com/leadwayhq/leadway/internal/campaign/domain"
	"github.com/leadwayhq/leadway/internal/clock"
	"github.com/leadwayhq/leadway/internal/config"
	customerdomain "github.com/leadwayhq/leadway/internal/customer/domain"
	leaddomain "github.com/leadwayhq/leadway/internal/lead/domain"
	"github.com/leadwayhq/leadway/internal/observability"
	obsmiddleware "github.com/leadwayhq/leadway/internal/observability/logger"
	obsmetrics "github.com/leadwayhq/leadway/internal/observability/metrics"
	obstracing "github.com/leadwayhq/leadway/internal/observability/tracing"
	"github.com/leadwayhq/leadway/internal/ratelimit"
	rbacdomain "github.com/leadwayhq/leadway/internal/rbac/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	db       *gorm.DB
	genID    *snowflake.Node
	clock    clock.Clock
	features *config.FeatureConfigHolder

	authsvc     authdomain.Service
	accountRepo authdomain.Repository
	sessions    *session.Manager
	rbacSvc     rbacdomain.Service
	authzSvc    authorization.Service
	auditSvc    auditdomain.Service
	billingSvc  billingdomain.Service
	provider    billingdomain.ProviderClient
	customerSvc customerdomain.Service
	leadSvc     leaddomain.Service
	campaignSvc campaigndomain.Service

	limiter    *ratelimit.Limiter
	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	DB       *gorm.DB
	GenID    *snowflake.Node
	Clock    clock.Clock
	Features *config.FeatureConfigHolder

	Authsvc     authdomain.Service
	AccountRepo authdomain.Repository
	Sessions    *session.Manager
	RBACSvc     rbacdomain.Service
	AuthzSvc    authorization.Service
	AuditSvc    auditdomain.Service
	BillingSvc  billingdomain.Service
	Provider    billingdomain.ProviderClient
	CustomerSvc customerdomain.Service
	LeadSvc     leaddomain.Service
	CampaignSvc campaigndomain.Service

	Limiter    *ratelimit.Limiter
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		db:       p.DB,
		genID:    p.GenID,
		clock:    p.Clock,
		features: p.Features,

		authsvc:     p.Authsvc,
		accountRepo: p.AccountRepo,
		sessions:    p.Sessions,
		rbacSvc:     p.RBACSvc,
		authzSvc:    p.AuthzSvc,
		auditSvc:    p.AuditSvc,
		billingSvc:  p.BillingSvc,
		provider:    p.Provider,
		customerSvc: p.CustomerSvc,
		leadSvc:     p.LeadSvc,
		campaignSvc: p.CampaignSvc,

		limiter:    p.Limiter,
		obsMetrics: p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAdminRoutes()
	svc.registerSubscriptionRoutes()
	svc.registerWebhookRoutes()
	svc.registerCRMRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

// registerAdminRoutes wires role and permission administration. Every
// route here is admin-only.
func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AuthRequired(), s.RequireRoles(rbacdomain.AdminRoleName))

	admin.GET("/roles", s.ListRoles)
	admin.POST("/roles", s.CreateRole)
	admin.PUT("/roles/:id", s.UpdateRole)
	admin.DELETE("/roles/:id", s.DeleteRole)

	admin.GET("/permissions", s.ListPermissions)
	admin.POST("/permissions", s.CreatePermission)
	admin.DELETE("/permissions/:id", s.DeletePermission)

	admin.POST("/roles/:id/permissions", s.GrantPermission)
	admin.DELETE("/roles/:id/permissions/:permissionId", s.RevokePermission)

	admin.GET("/audit-logs", s.ListAuditLogs)

	// User administration is open to managers as well, per the role
	// matrix, and needs an active subscription.
	users := s.engine.Group("/users",
		s.AuthRequired(),
		s.RequireRoles(rbacdomain.AdminRoleName, "manager"),
		s.SubscriptionRequired(),
		s.RequirePermission("manage users"),
	)
	users.GET("", s.ListUsers)
	users.POST("", s.CreateUser)
	users.GET("/:id/roles", s.ListUserRoles)

	adminOnly := s.RequireRoles(rbacdomain.AdminRoleName)
	users.POST("/:id/roles", adminOnly, s.AssignUserRole)
	users.DELETE("/:id/roles/:roleId", adminOnly, s.RemoveUserRole)
	users.PUT("/:id/roles", adminOnly, s.SyncUserRoles)
}

func (s *Server) registerSubscriptionRoutes() {
	sub := s.engine.Group("/subscription", s.AuthRequired())

	sub.GET("", s.ListSubscriptions)
	sub.GET("/plans", s.ListPlans)
	sub.POST("/checkout", s.CreateCheckoutSession)
	sub.POST("/portal", s.CreatePortalSession)
	sub.POST("/:id/cancel", s.CancelSubscription)
	sub.POST("/:id/resume", s.ResumeSubscription)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/billing/webhook/:provider", s.HandleBillingWebhook)
}

// registerCRMRoutes gates the paid product areas: any signed-in role may
// use them, but only with a live subscription.
func (s *Server) registerCRMRoutes() {
	leads := s.engine.Group("/leads", s.AuthRequired(), s.SubscriptionRequired())
	leads.GET("", s.ListLeads)
	leads.POST("", s.CreateLead)
	leads.GET("/:id", s.GetLeadByID)
	leads.PUT("/:id", s.UpdateLead)
	leads.POST("/:id/status", s.TransitionLead)
	leads.POST("/:id/convert", s.ConvertLead)
	leads.DELETE("/:id", s.DeleteLead)

	campaigns := s.engine.Group("/campaigns", s.AuthRequired(), s.SubscriptionRequired())
	campaigns.GET("", s.ListCampaigns)
	campaigns.GET("/:slug", s.GetCampaignBySlug)

	editCampaigns := s.RequirePermission("edit campaigns")
	campaigns.POST("", editCampaigns, s.CreateCampaign)
	campaigns.PUT("/:id", editCampaigns, s.UpdateCampaign)
	campaigns.DELETE("/:id", editCampaigns, s.DeleteCampaign)

	customers := s.engine.Group("/customers", s.AuthRequired(), s.SubscriptionRequired())
	customers.GET("", s.ListCustomers)
	customers.GET("/:id", s.GetCustomerByID)

	manageCustomers := s.RequirePermission("manage customers")
	customers.POST("", manageCustomers, s.CreateCustomer)
	customers.PUT("/:id", manageCustomers, s.UpdateCustomer)
	customers.DELETE("/:id", manageCustomers, s.DeleteCustomer)
}
