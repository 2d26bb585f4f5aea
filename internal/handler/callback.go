package handler

import (
	"net/url"
	"strings"
)

// SanitizeCallback returns raw if it is safe to redirect to after sign-in,
// otherwise fallback. Safe means a same-origin target: a relative path that
// cannot be read as scheme-relative, or an absolute http(s) URL on host, which
// is reduced to its path and query.
func SanitizeCallback(raw, host, fallback string) string {
	if raw == "" || strings.ContainsAny(raw, "\r\n\t\x00") {
		return fallback
	}

	if strings.HasPrefix(raw, "/") {
		if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
			return fallback
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme != "" || u.Host != "" {
			return fallback
		}
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.User != nil {
		return fallback
	}
	if host == "" || !strings.EqualFold(u.Host, host) {
		return fallback
	}
	target := u.RequestURI()
	if strings.HasPrefix(target, "//") {
		return fallback
	}
	if u.Fragment != "" {
		target += "#" + u.EscapedFragment()
	}
	return target
}
