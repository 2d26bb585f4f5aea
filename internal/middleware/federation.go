package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pf-nexus/papermark/internal/interceptor"
	"github.com/pf-nexus/papermark/internal/observability"
	"github.com/pf-nexus/papermark/internal/session"
)

// Decider is the part of *interceptor.Interceptor the middleware relies on.
type Decider interface {
	Decide(host, path, rawQuery string, cookies session.CookieJar) interceptor.Decision
	Eligible(host string) bool
}

type rewrittenKey struct{}

// Federation applies interceptor decisions: redirect with 302, rewrite by
// re-dispatching through engine, or pass through. Decisions are counted only
// for federation-eligible hosts.
func Federation(ic Decider, engine *gin.Engine, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		// A rewritten request is dispatched once more and must not be re-evaluated.
		if c.Request.Context().Value(rewrittenKey{}) != nil {
			c.Next()
			return
		}

		req := c.Request
		decision := ic.Decide(req.Host, req.URL.Path, req.URL.RawQuery, req)
		if ic.Eligible(req.Host) {
			metrics.InterceptorDecision(decision.Kind.String())
		}

		switch decision.Kind {
		case interceptor.Redirect:
			c.Redirect(http.StatusFound, decision.Path)
			c.Abort()
		case interceptor.Rewrite:
			c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), rewrittenKey{}, true))
			c.Request.URL.Path = decision.Path
			c.Request.URL.RawPath = ""
			engine.HandleContext(c)
			c.Abort()
		default:
			c.Next()
		}
	}
}
