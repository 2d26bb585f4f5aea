package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pf-nexus/papermark/internal/domain"
	"github.com/pf-nexus/papermark/internal/middleware"
	"github.com/pf-nexus/papermark/internal/observability"
	"github.com/pf-nexus/papermark/internal/service"
	"github.com/pf-nexus/papermark/internal/session"
)

// BridgeSettings holds the paths and lifetimes the bridge endpoints need.
type BridgeSettings struct {
	UpstreamCookie  string
	CompletionPath  string
	DefaultCallback string
	LoginPath       string
	SessionMaxAge   time.Duration
	HandoffTTL      time.Duration
}

// BridgeHandler handles the upstream sign-in bridge and local session endpoints.
type BridgeHandler struct {
	bridgeService service.BridgeService
	auth          *session.Authenticator
	cookies       *session.Builder
	settings      BridgeSettings
	log           logrus.FieldLogger
	metrics       *observability.Metrics
}

// NewBridgeHandler creates a new BridgeHandler.
func NewBridgeHandler(
	bridgeService service.BridgeService,
	auth *session.Authenticator,
	cookies *session.Builder,
	settings BridgeSettings,
	log logrus.FieldLogger,
	metrics *observability.Metrics,
) *BridgeHandler {
	return &BridgeHandler{
		bridgeService: bridgeService,
		auth:          auth,
		cookies:       cookies,
		settings:      settings,
		log:           log,
		metrics:       metrics,
	}
}

// SignIn handles GET /api/auth/pfnexus-signin
// It always answers with a redirect: to the callback on success, to the
// login page on any failure.
func (h *BridgeHandler) SignIn(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	callback := SanitizeCallback(c.Query("callbackUrl"), c.Request.Host, h.settings.DefaultCallback)

	if h.auth.IsLocallyAuthenticated(c.Request) {
		h.metrics.BridgeAttempt(observability.OutcomeSkipped)
		c.Redirect(http.StatusFound, callback)
		return
	}

	var upstreamToken string
	if cookie, err := c.Request.Cookie(h.settings.UpstreamCookie); err == nil {
		upstreamToken = cookie.Value
	}

	result, err := h.bridgeService.Bridge(c.Request.Context(), upstreamToken)
	if err != nil {
		h.metrics.BridgeAttempt(string(h.logFailure(c, err)))
		c.Redirect(http.StatusFound, h.settings.LoginPath)
		return
	}

	switch result.Kind {
	case service.TokenKindHandoff:
		h.setCookie(c, h.cookies.Handoff(result.Token, h.settings.HandoffTTL))
		c.Redirect(http.StatusFound, h.settings.CompletionPath+"?callbackUrl="+url.QueryEscape(callback))
	default:
		h.setSessionCookie(c, result.Token)
		c.Redirect(http.StatusFound, callback)
	}

	h.metrics.BridgeAttempt(observability.OutcomeSuccess)
	h.requestLog(c).WithFields(logrus.Fields{
		"user_id":    result.User.ID,
		"new_user":   result.IsNewUser,
		"token_kind": string(result.Kind),
	}).Info("bridge succeeded")
}

// CompleteHandoff handles POST /api/auth/pfnexus-complete
func (h *BridgeHandler) CompleteHandoff(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	callback := SanitizeCallback(c.Query("callbackUrl"), c.Request.Host, h.settings.DefaultCallback)

	var handoffToken string
	if cookie, err := c.Request.Cookie(session.HandoffCookieName); err == nil {
		handoffToken = cookie.Value
	}
	h.setCookie(c, h.cookies.ClearHandoff())

	result, err := h.bridgeService.CompleteHandoff(c.Request.Context(), handoffToken)
	if err != nil {
		h.metrics.HandoffExchange(string(h.logFailure(c, err)))
		status, code, msg := MapDomainError(err)
		RespondError(c, status, code, msg)
		return
	}

	h.setSessionCookie(c, result.Token)
	h.metrics.HandoffExchange(observability.OutcomeSuccess)
	RespondOK(c, gin.H{"redirect": callback})
}

// Session handles GET /api/auth/session
func (h *BridgeHandler) Session(c *gin.Context) {
	claims, err := middleware.GetClaims(c)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{
		"user_id":    claims.UserID,
		"email":      claims.Email,
		"name":       claims.Name,
		"expires_at": claims.ExpiresAtTime(),
	})
}

// SignOut handles POST /api/auth/signout
func (h *BridgeHandler) SignOut(c *gin.Context) {
	h.setCookie(c, h.cookies.ClearSession(c.Request.Host))
	c.Status(http.StatusNoContent)
}

func (h *BridgeHandler) setSessionCookie(c *gin.Context, token string) {
	cookie, scoped := h.cookies.Session(token, h.settings.SessionMaxAge, c.Request.Host)
	if !scoped {
		h.requestLog(c).WithField("cookie_domain", h.cookies.Identity().Domain).
			Warn("session cookie domain does not cover request host; issuing host-only cookie")
	}
	h.setCookie(c, cookie)
}

func (h *BridgeHandler) setCookie(c *gin.Context, cookie session.Cookie) {
	c.Writer.Header().Add("Set-Cookie", cookie.String())
}

// logFailure logs a bridge or handoff failure and returns its kind. Tokens
// are never logged.
func (h *BridgeHandler) logFailure(c *gin.Context, err error) domain.BridgeErrorKind {
	kind := domain.KindOf(err)
	if kind == "" {
		kind = domain.KindProvisioningError
	}

	entry := h.requestLog(c).WithField("kind", kind).WithError(err)
	switch kind {
	case domain.KindProvisioningError, domain.KindTokenEncodingError:
		entry.Error("sign-in failed")
	default:
		entry.Warn("sign-in failed")
	}
	return kind
}

func (h *BridgeHandler) requestLog(c *gin.Context) *logrus.Entry {
	return h.log.WithFields(logrus.Fields{
		"request_id": middleware.GetRequestID(c),
		"host":       c.Request.Host,
		"path":       c.Request.URL.Path,
	})
}
