// Package interceptor decides, for every inbound request, whether it should
// be sent through the upstream bridge before reaching the application.
package interceptor

import (
	"net"
	"net/url"
	"strings"

	"github.com/pf-nexus/papermark/internal/config"
	"github.com/pf-nexus/papermark/internal/session"
)

// Kind is the action a Decision asks for.
type Kind int

const (
	Continue Kind = iota
	Redirect
	Rewrite
)

func (k Kind) String() string {
	switch k {
	case Redirect:
		return "redirect"
	case Rewrite:
		return "rewrite"
	default:
		return "continue"
	}
}

// Decision is the result of Decide. Path is empty for Continue.
type Decision struct {
	Kind Kind
	Path string
}

// SessionChecker reports whether cookies already carry a valid local session.
type SessionChecker interface {
	IsLocallyAuthenticated(jar session.CookieJar) bool
}

// staticExclusions are paths never intercepted regardless of configuration.
// Each entry matches itself and anything below it.
var staticExclusions = []string{
	"/api",
	"/assets",
	"/login",
	"/register",
	"/_next",
	"/_static",
	"/_vercel",
	"/vendor",
	"/_icons",
	"/favicon.ico",
	"/sitemap.xml",
	"/healthz",
	"/readyz",
	"/metrics",
}

// Interceptor holds the federation rules. It has no side effects and is safe
// for concurrent use.
type Interceptor struct {
	exactHosts     map[string]struct{}
	suffixHosts    []string
	exclusions     []string
	initiatorPath  string
	upstreamCookie string
	sessions       SessionChecker
}

// New builds an Interceptor from the federation config. upstreamCookie is the
// name of the cookie holding the upstream session.
func New(cfg config.FederationConfig, upstreamCookie string, sessions SessionChecker) *Interceptor {
	i := &Interceptor{
		exactHosts:     make(map[string]struct{}),
		initiatorPath:  cfg.InitiatorPath,
		upstreamCookie: upstreamCookie,
		sessions:       sessions,
	}
	for _, h := range cfg.Hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if strings.HasPrefix(h, "*.") {
			i.suffixHosts = append(i.suffixHosts, h[1:])
			continue
		}
		if h != "" {
			i.exactHosts[h] = struct{}{}
		}
	}
	i.exclusions = append(i.exclusions, staticExclusions...)
	for _, p := range []string{cfg.InitiatorPath, cfg.CompletionPath, cfg.LoginPath} {
		if p != "" {
			i.exclusions = append(i.exclusions, strings.TrimRight(p, "/"))
		}
	}
	return i
}

// Decide evaluates the rules in order: host eligibility, path exclusion,
// presence of the upstream cookie, existing local session. rawQuery is the
// request query string without the leading '?'.
func (i *Interceptor) Decide(host, path, rawQuery string, cookies session.CookieJar) Decision {
	if !i.Eligible(host) {
		return Decision{Kind: Continue}
	}
	if i.Excluded(path) {
		return Decision{Kind: Continue}
	}
	if c, err := cookies.Cookie(i.upstreamCookie); err != nil || c.Value == "" {
		return Decision{Kind: Continue}
	}
	if i.sessions.IsLocallyAuthenticated(cookies) {
		return Decision{Kind: Continue}
	}
	return Decision{Kind: Redirect, Path: i.initiatorTarget(path, rawQuery)}
}

// Eligible reports whether host takes part in federation. Ports are ignored.
func (i *Interceptor) Eligible(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	if _, ok := i.exactHosts[host]; ok {
		return true
	}
	for _, suffix := range i.suffixHosts {
		if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
			return true
		}
	}
	return false
}

// Excluded reports whether path is never intercepted.
func (i *Interceptor) Excluded(path string) bool {
	for _, p := range i.exclusions {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func (i *Interceptor) initiatorTarget(path, rawQuery string) string {
	original := path
	if rawQuery != "" {
		original += "?" + rawQuery
	}
	return i.initiatorPath + "?callbackUrl=" + url.QueryEscape(original)
}
