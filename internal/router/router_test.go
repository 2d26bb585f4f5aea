package router_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pf-nexus/papermark/internal/config"
	"github.com/pf-nexus/papermark/internal/domain"
	"github.com/pf-nexus/papermark/internal/handler"
	"github.com/pf-nexus/papermark/internal/interceptor"
	"github.com/pf-nexus/papermark/internal/observability"
	"github.com/pf-nexus/papermark/internal/router"
	"github.com/pf-nexus/papermark/internal/service"
	"github.com/pf-nexus/papermark/internal/session"
	"github.com/pf-nexus/papermark/mocks"
)

const host = "datarooms.staging-pfnexus.com"

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) (*gin.Engine, *mocks.MockBridgeService) {
	t.Helper()

	cfg := &config.Config{
		Federation: config.FederationConfig{
			Hosts:           []string{host},
			InitiatorPath:   "/pfnexus-auto-signin",
			CompletionPath:  "/pfnexus-auto-signin-complete",
			DefaultCallback: "/dashboard",
			LoginPath:       "/login",
		},
		Metrics: config.MetricsConfig{Enabled: true},
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	identity := session.CookieIdentity{Name: session.SharedCookieName, Domain: ".staging-pfnexus.com", Secure: true}
	auth := session.NewAuthenticator(session.NewCodec("test-secret", "papermark"), identity)
	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	templates, err := handler.LoadTemplates()
	require.NoError(t, err)

	svc := new(mocks.MockBridgeService)
	bridgeH := handler.NewBridgeHandler(svc, auth, session.NewBuilder(identity), handler.BridgeSettings{
		UpstreamCookie:  "sessionId",
		CompletionPath:  cfg.Federation.CompletionPath,
		DefaultCallback: cfg.Federation.DefaultCallback,
		LoginPath:       cfg.Federation.LoginPath,
		SessionMaxAge:   time.Hour,
		HandoffTTL:      time.Minute,
	}, log, metrics)

	r := router.Setup(router.Deps{
		Config:      cfg,
		Log:         log,
		Templates:   templates,
		Interceptor: interceptor.New(cfg.Federation, "sessionId", auth),
		Auth:        auth,
		Metrics:     metrics,
		Registry:    registry,
		BridgeH:     bridgeH,
		PageH:       handler.NewPageHandler(cfg.Federation.DefaultCallback, cfg.Federation.LoginPath),
		HealthH:     handler.NewHealthHandler(sqlx.NewDb(sqlDB, "sqlmock"), nil),
	})
	return r, svc
}

func get(r http.Handler, path string, upstream bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "http://"+host+path, http.NoBody)
	if upstream {
		req.AddCookie(&http.Cookie{Name: "sessionId", Value: "upstream"})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_InterceptsAppPaths(t *testing.T) {
	r, _ := setupRouter(t)

	w := get(r, "/documents/5?tab=files", true)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/pfnexus-auto-signin?callbackUrl=%2Fdocuments%2F5%3Ftab%3Dfiles", w.Header().Get("Location"))
}

func TestRouter_WithoutUpstreamCookieFallsThrough(t *testing.T) {
	r, _ := setupRouter(t)

	w := get(r, "/documents/5", false)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestRouter_InitiatorIsNotIntercepted(t *testing.T) {
	r, _ := setupRouter(t)

	w := get(r, "/pfnexus-auto-signin?callbackUrl=%2Fdocuments%2F5", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Checking authentication")
}

func TestRouter_SignInRoute(t *testing.T) {
	r, svc := setupRouter(t)
	svc.On("Bridge", mock.Anything, "upstream").Return(&service.BridgeResult{
		User: &domain.User{ID: uuid.New()}, Token: "tok", Kind: service.TokenKindSession,
	}, nil)

	w := get(r, "/api/auth/pfnexus-signin?callbackUrl=%2Fdocuments%2F5", true)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/documents/5", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), session.SharedCookieName+"=tok")
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r, _ := setupRouter(t)

	assert.Equal(t, http.StatusOK, get(r, "/healthz", true).Code)

	get(r, "/documents/1", true)
	w := get(r, "/metrics", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "papermark_interceptor_decisions_total")
	assert.Contains(t, w.Body.String(), "papermark_http_requests_total")
}

func TestRouter_SessionRequiresCookie(t *testing.T) {
	r, _ := setupRouter(t)

	w := get(r, "/api/auth/session", true)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
