package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/meditrack/hospital-api/internal/handler"
	apptH "github.com/meditrack/hospital-api/internal/handler/appointment"
	auditH "github.com/meditrack/hospital-api/internal/handler/audit"
	authH "github.com/meditrack/hospital-api/internal/handler/auth"
	catalogH "github.com/meditrack/hospital-api/internal/handler/catalog"
	resultH "github.com/meditrack/hospital-api/internal/handler/labresult"
	patientH "github.com/meditrack/hospital-api/internal/handler/patient"
	requestH "github.com/meditrack/hospital-api/internal/handler/request"
	staffH "github.com/meditrack/hospital-api/internal/handler/staff"
	"github.com/meditrack/hospital-api/internal/middleware"
)

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	authHandler  *authH.Handler
	patients     *patientH.Handler
	staff        *staffH.Handler
	catalog      *catalogH.Handler
	requests     *requestH.Handler
	results      *resultH.Handler
	appointments *apptH.Handler
	audit        *auditH.Handler
	h            *handler.Handler
	metrics      *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type RouterConfig struct {
	RateLimit     rate.Limit
	RateBurst     int
	CORSConfig    middleware.CORSConfig
	MetricsPrefix string
	Timeout       time.Duration
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authHandler *authH.Handler,
	patients *patientH.Handler,
	staffHandler *staffH.Handler,
	catalogHandler *catalogH.Handler,
	requests *requestH.Handler,
	results *resultH.Handler,
	appointments *apptH.Handler,
	auditHandler *auditH.Handler,
	h *handler.Handler,
	config RouterConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	middleware.RegisterValidators()

	engine := gin.New()

	r := &Router{
		engine:       engine,
		auth:         auth,
		authHandler:  authHandler,
		patients:     patients,
		staff:        staffHandler,
		catalog:      catalogHandler,
		requests:     requests,
		results:      results,
		appointments: appointments,
		audit:        auditHandler,
		h:            h,
		metrics:      initRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(config.Timeout),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.setupHealthCheck(api)

	// Public routes
	r.authHandler.RegisterRoutes(api)

	// Protected routes
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	r.patients.RegisterRoutes(protected, r.auth)
	r.staff.RegisterRoutes(protected, r.auth)
	r.catalog.RegisterRoutes(protected, r.auth)
	r.requests.RegisterRoutes(protected, r.auth)
	r.results.RegisterRoutes(protected, r.auth)
	r.appointments.RegisterRoutes(protected, r.auth)
	r.audit.RegisterRoutes(protected, r.auth)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	m := &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
	prometheus.MustRegister(m.requestDuration, m.requestTotal, m.errorTotal)
	return m
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
