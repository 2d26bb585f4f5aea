package pfnexus_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pf-nexus/papermark/internal/domain"
	"github.com/pf-nexus/papermark/internal/upstream/pfnexus"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestValidate_NumericID(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/access/session", r.URL.Path)
		c, err := r.Cookie("sessionId")
		require.NoError(t, err)
		assert.Equal(t, "upstream-token", c.Value)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":42,"email":"jane@example.com","firstname":"Jane","lastname":"Doe","emailverified":"Yes"}}`))
	})

	v := pfnexus.NewValidator(srv.URL+"/api/", "sessionId", time.Second)
	profile, err := v.Validate(context.Background(), "upstream-token")
	require.NoError(t, err)
	assert.Equal(t, "42", profile.ID)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.Equal(t, "Jane Doe", profile.FullName())
	assert.True(t, profile.IsEmailVerified())
}

func TestValidate_StringID(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":"abc-7","email":"a@b.c","firstname":"A","lastname":"B","emailverified":"yes"}}`))
	})

	profile, err := pfnexus.NewValidator(srv.URL, "sessionId", time.Second).Validate(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "abc-7", profile.ID)
	assert.False(t, profile.IsEmailVerified())
}

func TestValidate_Non2xxIsRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusInternalServerError, http.StatusFound} {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := pfnexus.NewValidator(srv.URL, "sessionId", time.Second).Validate(context.Background(), "t")
		assert.True(t, errors.Is(err, domain.ErrUpstreamRejected), "status %d", status)
	}
}

func TestValidate_MissingFields(t *testing.T) {
	bodies := []string{
		`{"user":{"email":"a@b.c"}}`,
		`{"user":{"id":1}}`,
		`{"user":null}`,
		`{}`,
		`not json`,
		`{"user":{"id":{"nested":true},"email":"a@b.c"}}`,
	}
	for _, body := range bodies {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, err := pfnexus.NewValidator(srv.URL, "sessionId", time.Second).Validate(context.Background(), "t")
		assert.True(t, errors.Is(err, domain.ErrMalformedProfile), body)
	}
}

func TestValidate_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	start := time.Now()
	_, err := pfnexus.NewValidator(srv.URL, "sessionId", 50*time.Millisecond).Validate(context.Background(), "t")
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestValidate_SingleAttempt(t *testing.T) {
	calls := 0
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := pfnexus.NewValidator(srv.URL, "sessionId", time.Second).Validate(context.Background(), "t")
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestValidate_OptionalFieldsOfAnyType(t *testing.T) {
	tests := []struct {
		name         string
		user         string
		wantName     string
		wantVerified bool
	}{
		{"verified bool", `"firstname":"Jane","lastname":"Doe","emailverified":true`, "Jane Doe", false},
		{"verified number", `"firstname":"Jane","lastname":"Doe","emailverified":1`, "Jane Doe", false},
		{"verified null", `"firstname":"Jane","lastname":"Doe","emailverified":null`, "Jane Doe", false},
		{"verified lowercase", `"firstname":"Jane","lastname":"Doe","emailverified":"yes"`, "Jane Doe", false},
		{"verified yes", `"firstname":"Jane","lastname":"Doe","emailverified":"Yes"`, "Jane Doe", true},
		{"names not strings", `"firstname":7,"lastname":{"x":1},"emailverified":"Yes"`, " ", true},
		{"fields absent", ``, " ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"user":{"id":9,"email":"jane@example.com"`
			if tt.user != "" {
				body += "," + tt.user
			}
			body += `}}`
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			profile, err := pfnexus.NewValidator(srv.URL, "sessionId", time.Second).Validate(context.Background(), "t")
			require.NoError(t, err)
			assert.Equal(t, "9", profile.ID)
			assert.Equal(t, tt.wantName, profile.FullName())
			assert.Equal(t, tt.wantVerified, profile.IsEmailVerified())
		})
	}
}
