// Package router wires the HTTP handlers into a gin engine and runs the server.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/astragrid/internal/config"
	"github.com/turtacn/astragrid/internal/infrastructure/monitoring"
	"github.com/turtacn/astragrid/internal/interfaces/http/handlers"
	"github.com/turtacn/astragrid/internal/interfaces/http/middleware"
	"github.com/turtacn/astragrid/pkg/logger"
)

// Handlers groups the endpoint handlers mounted by the router.
type Handlers struct {
	Health *handlers.HealthHandler
	Scans  *handlers.ScanHandler
	Agents *handlers.AgentHandler
	Twin   *handlers.TwinHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	config   *config.ServerConfig
	logger   logger.Logger
	handlers Handlers
	tracer   trace.Tracer
	metrics  *monitoring.Metrics
	gatherer prometheus.Gatherer
	server   *http.Server
}

// NewRouter 创建路由器
func NewRouter(cfg *config.ServerConfig, h Handlers, tracer trace.Tracer, metrics *monitoring.Metrics, gatherer prometheus.Gatherer, log logger.Logger) *Router {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r := &Router{
		engine:   gin.New(),
		config:   cfg,
		logger:   log,
		handlers: h,
		tracer:   tracer,
		metrics:  metrics,
		gatherer: gatherer,
	}
	r.setupRoutes()
	return r
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 全局中间件
	r.engine.Use(
		middleware.Recovery(r.logger),
		middleware.RequestID(),
		middleware.ObservabilityMiddleware(r.tracer, r.metrics),
		middleware.Logging(r.logger),
	)

	// CORS 配置
	origins := r.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID", "traceparent"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           12 * time.Hour,
	}))

	r.engine.GET("/health", r.handlers.Health.HealthCheck)
	r.engine.GET("/health/live", r.handlers.Health.LivenessCheck)
	r.engine.GET("/health/ready", r.handlers.Health.HealthCheck)

	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	// Pprof 性能分析（仅在非生产环境）
	if r.config.EnablePprof {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")
	{
		scans := v1.Group("/scans")
		{
			scans.POST("", r.handlers.Scans.SubmitScan)
			scans.GET("", r.handlers.Scans.ListScans)
			scans.GET("/:scan_id", r.handlers.Scans.GetScan)
			scans.DELETE("/:scan_id", r.handlers.Scans.CancelScan)
		}
		agents := v1.Group("/agents")
		{
			agents.GET("/status", r.handlers.Agents.Status)
			agents.POST("/execute", r.handlers.Agents.Execute)
			agents.GET("/ws", r.handlers.Agents.Commands)
		}
		twin := v1.Group("/twin")
		{
			twin.GET("/components", r.handlers.Twin.ListComponents)
			twin.GET("/components/:component_id", r.handlers.Twin.GetComponent)
		}
		v1.GET("/compliance/standards", r.handlers.Twin.ListStandards)
	}

	// 404 处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "The requested resource was not found",
		})
	})
}

// Start 启动 HTTP 服务器. It blocks until the server stops.
func (r *Router) Start() error {
	addr := r.config.Addr()
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    r.config.ReadTimeout,
		WriteTimeout:   r.config.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	r.logger.Info(context.Background(), "Starting HTTP server", logger.String("address", addr))
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 停止 HTTP 服务器
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "Stopping HTTP server...")
	return r.server.Shutdown(ctx)
}

// Engine exposes the gin engine for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
