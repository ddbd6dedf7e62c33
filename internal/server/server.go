package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/fnol/internal/config"
	fnoldomain "github.com/smallbiznis/fnol/internal/fnol/domain"
	"github.com/smallbiznis/fnol/internal/observability"
	obsmiddleware "github.com/smallbiznis/fnol/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fnol/internal/observability/metrics"
	obstracing "github.com/smallbiznis/fnol/internal/observability/tracing"
	"github.com/smallbiznis/fnol/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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
	engine  *gin.Engine
	cfg     config.Config
	log     *zap.Logger
	fnolSvc fnoldomain.Service
	limiter *ratelimit.TokenBucket
	metrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin     *gin.Engine
	Cfg     config.Config
	Log     *zap.Logger
	FnolSvc fnoldomain.Service
	Limiter *ratelimit.TokenBucket `optional:"true"`
	Metrics *obsmetrics.Metrics    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:  p.Gin,
		cfg:     p.Cfg,
		log:     p.Log.Named("http.server"),
		fnolSvc: p.FnolSvc,
		limiter: p.Limiter,
		metrics: p.Metrics,
	}

	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.GET("/countries", s.ListCountries)

	fnol := api.Group("/fnol", s.APIKeyRequired(), s.RateLimit())
	{
		fnol.POST("", s.SubmitFnol)
		fnol.GET("/:fnolId", s.GetFnolDetail)
		fnol.GET("/:fnolId/status", s.GetFnolStatus)
	}
}
