package handler

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

const (
	initiatorTemplate  = "initiator.html"
	completionTemplate = "completion.html"

	signinPath   = "/api/auth/pfnexus-signin"
	exchangePath = "/api/auth/pfnexus-complete"
)

//go:embed templates/*.html
var templateFS embed.FS

// LoadTemplates parses the embedded page templates for gin's HTML renderer.
func LoadTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// PageHandler serves the browser-facing initiator and completion pages.
type PageHandler struct {
	defaultCallback string
	loginPath       string
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(defaultCallback, loginPath string) *PageHandler {
	return &PageHandler{defaultCallback: defaultCallback, loginPath: loginPath}
}

// Initiator handles GET /pfnexus-auto-signin
// The page performs a full navigation so the browser sends its upstream
// cookie along to the bridge endpoint.
func (h *PageHandler) Initiator(c *gin.Context) {
	callback := SanitizeCallback(c.Query("callbackUrl"), c.Request.Host, h.defaultCallback)
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, initiatorTemplate, gin.H{
		"SigninURL": signinPath + "?callbackUrl=" + url.QueryEscape(callback),
	})
}

// Completion handles GET /pfnexus-auto-signin-complete
// The page exchanges the handoff cookie for a session once, without retry.
func (h *PageHandler) Completion(c *gin.Context) {
	callback := SanitizeCallback(c.Query("callbackUrl"), c.Request.Host, h.defaultCallback)
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, completionTemplate, gin.H{
		"ExchangeURL": exchangePath + "?callbackUrl=" + url.QueryEscape(callback),
		"LoginPath":   h.loginPath,
	})
}
