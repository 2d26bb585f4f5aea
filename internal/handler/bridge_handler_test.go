package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pf-nexus/papermark/internal/domain"
	"github.com/pf-nexus/papermark/internal/handler"
	"github.com/pf-nexus/papermark/internal/middleware"
	"github.com/pf-nexus/papermark/internal/observability"
	"github.com/pf-nexus/papermark/internal/service"
	"github.com/pf-nexus/papermark/internal/session"
	"github.com/pf-nexus/papermark/mocks"
)

const (
	bridgeHost = "datarooms.staging-pfnexus.com"
	thirtyDays = 30 * 24 * time.Hour
)

func init() {
	gin.SetMode(gin.TestMode)
}

type bridgeFixture struct {
	svc     *mocks.MockBridgeService
	codec   *session.Codec
	metrics *observability.Metrics
	logs    *bytes.Buffer
	engine  *gin.Engine
}

func setupBridgeHandler(identity session.CookieIdentity) *bridgeFixture {
	f := &bridgeFixture{
		svc:     new(mocks.MockBridgeService),
		codec:   session.NewCodec("test-secret", "papermark"),
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
		logs:    &bytes.Buffer{},
	}
	log := logrus.New()
	log.SetOutput(f.logs)
	log.SetFormatter(&logrus.JSONFormatter{})

	auth := session.NewAuthenticator(f.codec, identity)
	h := handler.NewBridgeHandler(f.svc, auth, session.NewBuilder(identity), handler.BridgeSettings{
		UpstreamCookie:  "sessionId",
		CompletionPath:  "/pfnexus-auto-signin-complete",
		DefaultCallback: "/dashboard",
		LoginPath:       "/login",
		SessionMaxAge:   thirtyDays,
		HandoffTTL:      time.Minute,
	}, log, f.metrics)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/api/auth/pfnexus-signin", h.SignIn)
	r.POST("/api/auth/pfnexus-complete", h.CompleteHandoff)
	r.GET("/api/auth/session", middleware.RequireSession(auth), h.Session)
	r.POST("/api/auth/signout", h.SignOut)
	f.engine = r
	return f
}

func sharedStaging() session.CookieIdentity {
	return session.CookieIdentity{Name: session.SharedCookieName, Domain: ".staging-pfnexus.com", Secure: true}
}

func signinRequest(query string, upstream string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "http://"+bridgeHost+"/api/auth/pfnexus-signin"+query, http.NoBody)
	if upstream != "" {
		req.AddCookie(&http.Cookie{Name: "sessionId", Value: upstream})
	}
	return req
}

func TestSignIn_SuccessSetsSessionCookie(t *testing.T) {
	f := setupBridgeHandler(sharedStaging())

	userID := uuid.New()
	f.svc.On("Bridge", mock.Anything, "upstream-secret").Return(&service.BridgeResult{
		User:  &domain.User{ID: userID, Email: "jane@example.com"},
		Token: "local-session-token",
		Kind:  service.TokenKindSession,
	}, nil)

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, signinRequest("?callbackUrl=%2Fdocuments%2F9", "upstream-secret"))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/documents/9", w.Header().Get("Location"))
	assert.Equal(t,
		"__secured-session-token=local-session-token; Path=/; Domain=.staging-pfnexus.com; Max-Age=2592000; HttpOnly; Secure; SameSite=Lax",
		w.Header().Get("Set-Cookie"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BridgeAttemptsTotal.WithLabelValues("success")))
	assert.NotContains(t, f.logs.String(), "upstream-secret")
	assert.NotContains(t, f.logs.String(), "local-session-token")
	f.svc.AssertExpectations(t)
}

func TestSignIn_DefaultCallback(t *testing.T) {
	f := setupBridgeHandler(sharedStaging())
	f.svc.On("Bridge", mock.Anything, "u").Return(&service.BridgeResult{
		User: &domain.User{ID: uuid.New()}, Token: "tok", Kind: service.TokenKindSession,
	}, nil)

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, signinRequest("?callbackUrl=https%3A%2F%2Fevil.com%2F", "u"))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestSignIn_FailuresRedirectToLogin(t *testing.T) {
	kinds := []domain.BridgeErrorKind{
		domain.KindMissingUpstreamSession,
		domain.KindUpstreamValidationFailed,
		domain.KindMalformedUpstreamProfile,
		domain.KindProvisioningError,
		domain.KindTokenEncodingError,
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			f := setupBridgeHandler(sharedStaging())
			f.svc.On("Bridge", mock.Anything, mock.Anything).
				Return(nil, domain.NewBridgeError(kind, errors.New("cause")))

			w := httptest.NewRecorder()
			f.engine.ServeHTTP(w, signinRequest("?callbackUrl=%2Fdocuments", "upstream-secret"))

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/login", w.Header().Get("Location"))
			assert.Empty(t, w.Header().Get("Set-Cookie"))
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BridgeAttemptsTotal.WithLabelValues(string(kind))))

			logs := f.logs.String()
			assert.Contains(t, logs, string(kind))
			assert.Contains(t, logs, bridgeHost)
			assert.Contains(t, logs, "request_id")
			assert.NotContains(t, logs, "upstream-secret")
		})
	}
}

func TestSignIn_MissingCookiePassesEmptyToken(t *testing.T) {
	f := setupBridgeHandler(sharedStaging())
	f.svc.On("Bridge", mock.Anything, "").
		Return(nil, domain.NewBridgeError(domain.KindMissingUpstreamSession, domain.ErrUnauthorized))

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, signinRequest("", ""))

	assert.Equal(t, "/login", w.Header().Get("Location"))
	f.svc.AssertExpectations(t)
}

func TestSignIn_AlreadyAuthenticatedSkipsUpstream(t *testing.T) {
	f := setupBridgeHandler(sharedStaging())

	token, err := f.codec.Encode(session.NewSessionClaims(&domain.User{ID: uuid.New()}), time.Hour)
	require.NoError(t, err)

	req := signinRequest("?callbackUrl=%2Fdocuments%2F1", "upstream")
	req.AddCookie(&http.Cookie{Name: session.SharedCookieName, Value: token})
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/documents/1", w.Header().Get("Location"))
	assert.Empty(t, w.Header().Get("Set-Cookie"))
	f.svc.AssertNotCalled(t, "Bridge", mock.Anything, mock.Anything)
}

func TestSignIn_DomainNotCoveringHostFallsBackToHostOnly(t *testing.T) {
	f := setupBridgeHandler(session.CookieIdentity{Name: session.SharedCookieName, Domain: ".pfnexus.com", Secure: true})
	f.svc.On("Bridge", mock.Anything, "u").Return(&service.BridgeResult{
		User: &domain.User{ID: uuid.New()}, Token: "tok", Kind: service.TokenKindSession,
	}, nil)

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, signinRequest("", "u"))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.NotContains(t, w.Header().Get("Set-Cookie"), "Domain=")
	assert.Contains(t, f.logs.String(), "host-only")
}

func TestSignIn_HandoffMode(t *testing.T) {
	f := setupBridgeHandler(sharedStaging())
	f.svc.On("Bridge", mock.Anything, "u").Return(&service.BridgeResult{
		User: &domain.User{ID: uuid.New()}, Token: "handoff-token", Kind: service.TokenKindHandoff,
	}, nil)

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, signinRequest("?callbackUrl=%2Fdocuments%2F9", "u"))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/pfnexus-auto-signin-complete?callbackUrl=%2Fdocuments%2F9", w.Header().Get("Location"))
	assert.Equal(t, "pfnexus-handoff=handoff-token; Path=/; Max-Age=60; HttpOnly; Secure; SameSite=Lax", w.Header().Get("Set-Cookie"))
}

func TestCompleteHandoff_Success(t *testing.T) {
	f := setupBridgeHandler(sharedStaging())
	f.svc.On("CompleteHandoff", mock.Anything, "handoff-token").Return(&service.BridgeResult{
		User: &domain.User{ID: uuid.New()}, Token: "session-token-value", Kind: service.TokenKindSession,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "http://"+bridgeHost+"/api/auth/pfnexus-complete?callbackUrl=%2Fdocuments%2F9", http.NoBody)
	req.AddCookie(&http.Cookie{Name: session.HandoffCookieName, Value: "handoff-token"})
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "/documents/9", resp.Data.(map[string]interface{})["redirect"])

	cookies := w.Header().Values("Set-Cookie")
	require.Len(t, cookies, 2)
	assert.True(t, strings.HasPrefix(cookies[0], "pfnexus-handoff=;"))
	assert.Contains(t, cookies[0], "Max-Age=0")
	assert.True(t, strings.HasPrefix(cookies[1], "__secured-session-token=session-token-value;"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HandoffExchangesTotal.WithLabelValues("success")))
}

func TestCompleteHandoff_Invalid(t *testing.T) {
	f := setupBridgeHandler(sharedStaging())
	f.svc.On("CompleteHandoff", mock.Anything, "").
		Return(nil, domain.NewBridgeError(domain.KindHandoffInvalid, domain.ErrHandoffInvalid))

	req := httptest.NewRequest(http.MethodPost, "http://"+bridgeHost+"/api/auth/pfnexus-complete", http.NoBody)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "HANDOFF_INVALID")
	assert.Len(t, w.Header().Values("Set-Cookie"), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HandoffExchangesTotal.WithLabelValues("handoff_invalid")))
}

func TestSessionAndSignOut(t *testing.T) {
	f := setupBridgeHandler(sharedStaging())
	userID := uuid.New()
	token, err := f.codec.Encode(session.NewSessionClaims(&domain.User{ID: userID, Email: "jane@example.com", Name: "Jane Doe"}), time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "http://"+bridgeHost+"/api/auth/session", http.NoBody)
	req.AddCookie(&http.Cookie{Name: session.SharedCookieName, Value: token})
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
	assert.Contains(t, w.Body.String(), "Jane Doe")

	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://"+bridgeHost+"/api/auth/session", http.NoBody))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://"+bridgeHost+"/api/auth/signout", http.NoBody))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t,
		"__secured-session-token=; Path=/; Domain=.staging-pfnexus.com; Max-Age=0; HttpOnly; Secure; SameSite=Lax",
		w.Header().Get("Set-Cookie"))
}
