package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/promolens/internal/apikey"
	apikeydomain "github.com/smallbiznis/promolens/internal/apikey/domain"
	"github.com/smallbiznis/promolens/internal/backfill"
	"github.com/smallbiznis/promolens/internal/capture"
	"github.com/smallbiznis/promolens/internal/catalog"
	"github.com/smallbiznis/promolens/internal/clock"
	"github.com/smallbiznis/promolens/internal/config"
	"github.com/smallbiznis/promolens/internal/events"
	"github.com/smallbiznis/promolens/internal/fact"
	"github.com/smallbiznis/promolens/internal/legacy"
	"github.com/smallbiznis/promolens/internal/observability"
	obsmetrics "github.com/smallbiznis/promolens/internal/observability/metrics"
	"github.com/smallbiznis/promolens/internal/orders"
	"github.com/smallbiznis/promolens/internal/pricing"
	"github.com/smallbiznis/promolens/internal/report"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	events.Module,
	clock.Module,
	pricing.Module,
	apikey.Module,
	catalog.Module,
	orders.Module,
	fact.Module,
	legacy.Module,
	capture.Module,
	backfill.Module,
	report.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogging())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin() *gin.Engine {
	return NewEngine()
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
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
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	apiKeySvc  apikeydomain.Service
	captureSvc *capture.Service
	reportSvc  *report.Service
	migrator   *backfill.Migrator
	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	APIKeySvc  apikeydomain.Service
	CaptureSvc *capture.Service
	ReportSvc  *report.Service
	Migrator   *backfill.Migrator
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		apiKeySvc:  p.APIKeySvc,
		captureSvc: p.CaptureSvc,
		reportSvc:  p.ReportSvc,
		migrator:   p.Migrator,
		obsMetrics: p.ObsMetrics,
	}

	svc.registerReportRoutes()
	svc.registerHookRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerReportRoutes() {
	reports := s.engine.Group("/v1/reports", s.APIKeyRequired(apikeydomain.ScopeReportsManage))

	reports.GET("/current-discounts", s.GetCurrentDiscounts)
	reports.GET("/discount-history", s.GetDiscountHistory)
	reports.GET("/discount-summary", s.GetDiscountSummary)
	reports.GET("/export", s.ExportReport)
}

func (s *Server) registerHookRoutes() {
	hooks := s.engine.Group("/v1/hooks", s.APIKeyRequired(apikeydomain.ScopeHooksWrite))

	hooks.POST("/order-status", s.OrderStatusHook)
	hooks.POST("/order-refund", s.OrderRefundHook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/v1/admin", s.APIKeyRequired(apikeydomain.ScopeReportsManage))

	admin.POST("/backfill", s.RunBackfill)
	admin.GET("/api-keys", s.ListAPIKeys)
	admin.POST("/api-keys", s.CreateAPIKey)
	admin.DELETE("/api-keys/:key_id", s.RevokeAPIKey)
}
