package router

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/pf-nexus/papermark/internal/config"
	"github.com/pf-nexus/papermark/internal/handler"
	"github.com/pf-nexus/papermark/internal/middleware"
	"github.com/pf-nexus/papermark/internal/observability"
	"github.com/pf-nexus/papermark/internal/session"
)

// Deps bundles everything the router wires together.
type Deps struct {
	Config      *config.Config
	Log         *logrus.Logger
	Templates   *template.Template
	Interceptor middleware.Decider
	Auth        *session.Authenticator
	Metrics     *observability.Metrics
	Registry    *prometheus.Registry

	BridgeH *handler.BridgeHandler
	PageH   *handler.PageHandler
	HealthH *handler.HealthHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(d Deps) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(d.Templates)

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.Recovery(d.Log))
	r.Use(observability.HTTPMiddleware(d.Metrics))
	r.Use(middleware.CORS(d.Config.CORS.AllowedOrigins))
	r.Use(middleware.Federation(d.Interceptor, r, d.Metrics))

	// Health checks
	r.GET("/healthz", d.HealthH.Liveness)
	r.GET("/readyz", d.HealthH.Readiness)
	if d.Config.Metrics.Enabled && d.Registry != nil {
		r.GET("/metrics", observability.Handler(d.Registry))
	}

	// Browser pages
	fed := d.Config.Federation
	r.GET(fed.InitiatorPath, d.PageH.Initiator)
	r.GET(fed.CompletionPath, d.PageH.Completion)

	auth := r.Group("/api/auth")
	auth.GET("/pfnexus-signin", d.BridgeH.SignIn)
	auth.POST("/pfnexus-complete", d.BridgeH.CompleteHandoff)
	auth.POST("/signout", d.BridgeH.SignOut)
	auth.GET("/session", middleware.RequireSession(d.Auth), d.BridgeH.Session)

	r.NoRoute(func(c *gin.Context) {
		handler.RespondError(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})

	return r
}
