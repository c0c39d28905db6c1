package edx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitodl/edupipe/pkg/errors"
)

func TestAcquireToken(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		require.Equal(t, tokenPath, r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "test-id", r.Form.Get("client_id"))
		assert.Equal(t, "test-secret", r.Form.Get("client_secret"))
		assert.Equal(t, "jwt", r.Form.Get("token_type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-abc","token_type":"JWT","expires_in":3600}`))
	}))
	defer server.Close()

	token, err := AcquireToken(context.Background(), TokenConfig{
		BaseURL:      server.URL,
		ClientID:     "test-id",
		ClientSecret: "test-secret",
	}, server.Client())
	require.NoError(t, err)

	assert.Equal(t, 1, requests)
	assert.Equal(t, "tok-abc", token.AccessToken)
	assert.Equal(t, "JWT", token.AuthScheme())
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, time.Minute)
}

func TestAcquireTokenRejected(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	token, err := AcquireToken(context.Background(), TokenConfig{
		BaseURL:      server.URL,
		ClientID:     "bad-id",
		ClientSecret: "bad-secret",
	}, server.Client())
	require.Error(t, err)
	assert.Nil(t, token)

	// Rejection is terminal for the run: exactly one attempt, no retry.
	assert.Equal(t, 1, requests)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
}

func TestTokenAuthScheme(t *testing.T) {
	tests := []struct {
		name      string
		tokenType string
		want      string
	}{
		{name: "jwt", tokenType: "jwt", want: "JWT"},
		{name: "jwt uppercase", tokenType: "JWT", want: "JWT"},
		{name: "bearer", tokenType: "bearer", want: "Bearer"},
		{name: "unknown defaults to bearer", tokenType: "other", want: "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := &Token{TokenType: tt.tokenType}
			assert.Equal(t, tt.want, token.AuthScheme())
		})
	}
}

func TestAcquireTokenTypeOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "bearer", r.Form.Get("token_type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-xyz","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	token, err := AcquireToken(context.Background(), TokenConfig{
		BaseURL:      server.URL,
		ClientID:     "test-id",
		ClientSecret: "test-secret",
		TokenType:    "bearer",
	}, server.Client())
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.AuthScheme())
}
