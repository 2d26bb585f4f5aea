package session

import "net/http"

// CookieJar is anything cookies can be read from by name. *http.Request
// satisfies it.
type CookieJar interface {
	Cookie(name string) (*http.Cookie, error)
}

// Authenticator answers whether a request already holds a valid local session.
// The interceptor, the bridge handler and the auth middleware all use it so
// they agree on what "authenticated" means.
type Authenticator struct {
	codec      *Codec
	cookieName string
}

// NewAuthenticator creates an Authenticator reading the cookie named by identity.
func NewAuthenticator(codec *Codec, identity CookieIdentity) *Authenticator {
	return &Authenticator{codec: codec, cookieName: identity.Name}
}

// Authenticate returns the decoded session claims, or false when the cookie
// is absent or does not verify.
func (a *Authenticator) Authenticate(jar CookieJar) (*Claims, bool) {
	cookie, err := jar.Cookie(a.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	claims, err := a.codec.Decode(cookie.Value, AudienceSession)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// IsLocallyAuthenticated reports whether jar carries a valid session cookie.
func (a *Authenticator) IsLocallyAuthenticated(jar CookieJar) bool {
	_, ok := a.Authenticate(jar)
	return ok
}
