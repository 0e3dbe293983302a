package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/complyx/complyx/internal/metrics"
	"github.com/complyx/complyx/internal/service"
	"github.com/complyx/complyx/internal/settings"
	"github.com/complyx/complyx/internal/workflow"
)

// Options wires the router.
type Options struct {
	Service  *service.Service
	Settings *settings.Service
	Auth     AuthProvider
	Metrics  *metrics.Metrics
	// Gatherer backs /metrics; nil hides the endpoint.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger

	RateLimitRPS   float64
	RateLimitBurst int
	// TraceService names the otelgin server spans; empty disables tracing middleware.
	TraceService string
}

// NewRouter builds the gin engine with every route and middleware.
func NewRouter(o Options) *gin.Engine {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	h := &Handler{Service: o.Service, Settings: o.Settings, Logger: o.Logger}
	if o.Auth == nil {
		o.Auth = &HeaderAuthProvider{Users: o.Service}
	}

	r := gin.New()
	r.Use(RequestID(), Recover(o.Logger))
	if o.TraceService != "" {
		r.Use(otelgin.Middleware(o.TraceService))
	}
	r.Use(Observe(o.Metrics), LogRequests(o.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if o.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1", RateLimit(o.RateLimitRPS, o.RateLimitBurst, o.Metrics), h.Authenticate(o.Auth))
	{
		docs := v1.Group("/documents")
		docs.POST("", h.CreateDocument)
		docs.GET("", h.ListDocuments)
		docs.GET("/search", h.SearchDocuments)
		docs.GET("/stats", h.Stats)

		docs.POST("/ai/categorize", h.Categorize)
		docs.POST("/ai/duplicates", h.Duplicates)
		docs.GET("/ai/recommendations", h.Recommendations)

		docs.GET("/:id", h.GetDocument)
		docs.PUT("/:id", h.UpdateDocument)
		docs.DELETE("/:id", h.DeleteDocument)
		docs.GET("/:id/download", h.Download)
		docs.GET("/:id/permissions", h.Permissions)
		docs.POST("/:id/transfer", h.Transfer)
		docs.GET("/:id/audit", h.AuditTrail)
		for _, a := range workflow.UserActions {
			docs.POST("/:id/"+string(a), h.Transition(a))
		}

		docs.POST("/:id/access", h.PutGrant)
		docs.GET("/:id/access", h.ListGrants)
		docs.GET("/:id/access/:grantId", h.GetGrant)
		docs.DELETE("/:id/access/:grantId", h.RevokeGrant)

		users := v1.Group("/users")
		users.POST("", h.CreateUser)
		users.GET("", h.ListUsers)
		users.GET("/me", h.Me)
		users.PUT("/:id", h.UpdateUser)
		users.POST("/:id/deactivate", h.DeactivateUser)

		sec := v1.Group("/settings/security")
		sec.GET("", h.GetSecuritySettings)
		sec.PUT("", h.UpdateSecuritySettings)
		sec.GET("/history", h.SecuritySettingsHistory)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found", "reason": "not_found"})
	})
	return r
}
