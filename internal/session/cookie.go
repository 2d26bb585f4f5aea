package session

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pf-nexus/papermark/internal/config"
)

// Cookie names.
const (
	SharedCookieName  = "__secured-session-token"
	LocalCookieName   = "session-token"
	HandoffCookieName = "pfnexus-handoff"
)

// CookieIdentity is the name, domain and secure flag used for the local
// session cookie. It depends only on the deployment.
type CookieIdentity struct {
	Name   string
	Domain string
	Secure bool
}

// IdentityFor resolves the session cookie identity for a deployment.
func IdentityFor(d config.Deployment) CookieIdentity {
	if !d.Shared {
		return CookieIdentity{Name: LocalCookieName}
	}
	domain := d.StagingDomain
	if d.Production {
		domain = d.ProductionDomain
	}
	return CookieIdentity{
		Name:   SharedCookieName,
		Domain: "." + strings.TrimPrefix(domain, "."),
		Secure: true,
	}
}

// Cookie is an outbound Set-Cookie value. Path is always "/", HttpOnly is
// always set and SameSite is always Lax.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	MaxAge int
	Secure bool
}

// String renders the Set-Cookie header value:
//
//	<name>=<value>; Path=/; [Domain=<d>; ]Max-Age=<s>; HttpOnly; [Secure; ]SameSite=Lax
func (c Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)
	b.WriteString("; Path=/")
	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}
	b.WriteString("; Max-Age=")
	b.WriteString(strconv.Itoa(c.MaxAge))
	b.WriteString("; HttpOnly")
	if c.Secure {
		b.WriteString("; Secure")
	}
	b.WriteString("; SameSite=Lax")
	return b.String()
}

// Builder produces cookies for one identity, scoped to the request host.
type Builder struct {
	identity CookieIdentity
}

// NewBuilder creates a Builder for identity.
func NewBuilder(identity CookieIdentity) *Builder {
	return &Builder{identity: identity}
}

// Identity returns the identity the builder emits.
func (b *Builder) Identity() CookieIdentity {
	return b.identity
}

// Session builds the session cookie. The second result is false when the
// configured domain does not cover requestHost and was dropped, leaving a
// host-only cookie.
func (b *Builder) Session(token string, maxAge time.Duration, requestHost string) (Cookie, bool) {
	return b.build(b.identity.Name, token, int(maxAge/time.Second), requestHost)
}

// ClearSession builds a cookie that deletes the session cookie.
func (b *Builder) ClearSession(requestHost string) Cookie {
	c, _ := b.build(b.identity.Name, "", 0, requestHost)
	return c
}

// Handoff builds the short-lived handoff cookie. It is always host-only.
func (b *Builder) Handoff(token string, ttl time.Duration) Cookie {
	return Cookie{
		Name:   HandoffCookieName,
		Value:  token,
		MaxAge: int(ttl / time.Second),
		Secure: b.identity.Secure,
	}
}

// ClearHandoff builds a cookie that deletes the handoff cookie.
func (b *Builder) ClearHandoff() Cookie {
	return b.Handoff("", 0)
}

func (b *Builder) build(name, value string, maxAge int, requestHost string) (Cookie, bool) {
	c := Cookie{
		Name:   name,
		Value:  value,
		Domain: b.identity.Domain,
		MaxAge: maxAge,
		Secure: b.identity.Secure,
	}
	if c.Domain != "" && !DomainCovers(c.Domain, requestHost) {
		c.Domain = ""
		return c, false
	}
	return c, true
}

// DomainCovers reports whether a cookie Domain attribute would be accepted by
// a browser for host. The port, if any, is ignored.
func DomainCovers(domain, host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	d := strings.ToLower(strings.TrimPrefix(domain, "."))
	if d == "" || host == "" {
		return false
	}
	return host == d || strings.HasSuffix(host, "."+d)
}
