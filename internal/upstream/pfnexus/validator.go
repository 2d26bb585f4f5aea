package pfnexus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pf-nexus/papermark/internal/domain"
	"github.com/pf-nexus/papermark/internal/port"
)

const (
	sessionPath     = "/access/session"
	maxResponseSize = 1 << 20
)

type sessionResponse struct {
	User *userPayload `json:"user"`
}

type userPayload struct {
	ID            profileID      `json:"id"`
	Email         string         `json:"email"`
	FirstName     optionalString `json:"firstname"`
	LastName      optionalString `json:"lastname"`
	EmailVerified optionalString `json:"emailverified"`
}

// optionalString keeps a JSON string as is and reads any other JSON value as
// empty. Only id and email are required of the upstream profile.
type optionalString string

func (o *optionalString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*o = ""
		return nil
	}
	*o = optionalString(s)
	return nil
}

// profileID accepts the upstream id as either a JSON string or a JSON number.
type profileID string

func (p *profileID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = profileID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("profile id: %w", err)
	}
	*p = profileID(n.String())
	return nil
}

// Validator checks upstream sessions against the PF Nexus session endpoint.
type Validator struct {
	endpoint   string
	cookieName string
	httpClient *http.Client
}

// NewValidator creates a Validator. baseURL is the API root, for example
// https://api.staging-pfnexus.com/api.
func NewValidator(baseURL, cookieName string, timeout time.Duration) *Validator {
	return &Validator{
		endpoint:   strings.TrimRight(baseURL, "/") + sessionPath,
		cookieName: cookieName,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Validate makes one request to the session endpoint presenting token as the
// upstream session cookie.
func (v *Validator) Validate(ctx context.Context, token string) (*domain.UpstreamProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating session request: %w", err)
	}
	req.Header.Set("Cookie", v.cookieName+"="+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamRejected, resp.StatusCode)
	}

	var body sessionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedProfile, err)
	}
	if body.User == nil || body.User.ID == "" || body.User.Email == "" {
		return nil, domain.ErrMalformedProfile
	}

	return &domain.UpstreamProfile{
		ID:            string(body.User.ID),
		Email:         body.User.Email,
		FirstName:     string(body.User.FirstName),
		LastName:      string(body.User.LastName),
		EmailVerified: string(body.User.EmailVerified),
	}, nil
}

// Compile-time check.
var _ port.UpstreamValidator = (*Validator)(nil)
