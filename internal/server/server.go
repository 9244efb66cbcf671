package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/workfolio/workfolio/internal/billing"
	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
	"github.com/workfolio/workfolio/internal/config"
	"github.com/workfolio/workfolio/internal/logger"
	"github.com/workfolio/workfolio/internal/metrics"
	"github.com/workfolio/workfolio/internal/ratelimit"
	"github.com/workfolio/workfolio/internal/team"
	teamservice "github.com/workfolio/workfolio/internal/team/service"
	"github.com/workfolio/workfolio/internal/tracing"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	team.Module,
	billing.Module,
	ratelimit.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsMetrics *metrics.Metrics, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware())
	r.Use(tracing.GinMiddleware())
	r.Use(metrics.GinMiddleware(obsMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return r
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
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	teamSvc     *teamservice.Service
	billingSvc  billingdomain.Service
	syncLimiter *ratelimit.SyncLimiter
	plans       *config.PlanCatalogHolder
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	TeamSvc     *teamservice.Service
	BillingSvc  billingdomain.Service
	SyncLimiter *ratelimit.SyncLimiter
	Plans       *config.PlanCatalogHolder
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		teamSvc:     p.TeamSvc,
		billingSvc:  p.BillingSvc,
		syncLimiter: p.SyncLimiter,
		plans:       p.Plans,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	hooks := s.engine.Group("/webhooks")

	hooks.POST("/commerce", s.HandleCommerceWebhook)
	hooks.GET("/commerce", s.HandleWebhookLiveness)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/teams", s.HandleCreateTeam)

	authed := api.Group("", s.TeamAuthRequired())
	authed.GET("/subscription", s.HandleGetSubscription)
	authed.POST("/subscription/sync", s.SyncRateLimited(), s.HandleSubscriptionSync)
	authed.POST("/subscription/onchain", s.HandleOnChainPayment)
	authed.GET("/plans", s.HandleListPlans)
}
