// Package edx provides the Open edX API client: OAuth2 token acquisition
// and cursor-paginated consumption of the course catalog endpoint.
package edx

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/mitodl/edupipe/pkg/errors"
)

const tokenPath = "/oauth2/access_token"

// TokenConfig holds the client-credentials grant parameters.
type TokenConfig struct {
	// BaseURL is the LMS base URL including protocol.
	BaseURL string

	// ClientID and ClientSecret are the OAuth2 application credentials.
	ClientID     string
	ClientSecret string

	// TokenType selects "jwt" or "bearer". Defaults to "jwt".
	TokenType string
}

// Token is a short-lived access token scoped to the credential pair
// that produced it. It is held by the caller for the duration of a
// fetch session and never persisted; expiry surfaces as an
// authentication failure on the next request.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// AuthScheme returns the Authorization header scheme for the token.
func (t *Token) AuthScheme() string {
	if strings.EqualFold(t.TokenType, "jwt") {
		return "JWT"
	}
	return "Bearer"
}

// AcquireToken exchanges OAuth2 client credentials for an access token
// at {base_url}/oauth2/access_token. Exactly one request is made; a
// non-2xx response is surfaced as an authentication error with no
// retry, and nothing is cached. The caller owns reuse within a session.
func AcquireToken(ctx context.Context, cfg TokenConfig, httpClient *http.Client) (*Token, error) {
	tokenType := cfg.TokenType
	if tokenType == "" {
		tokenType = "jwt"
	}

	conf := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     strings.TrimRight(cfg.BaseURL, "/") + tokenPath,
		AuthStyle:    oauth2.AuthStyleInParams,
		EndpointParams: url.Values{
			"token_type": {tokenType},
		},
	}

	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	tok, err := conf.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if stderrors.As(err, &retrieveErr) {
			return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "token request rejected").
				WithDetail("status", retrieveErr.Response.StatusCode)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "token request failed")
	}

	return &Token{
		AccessToken: tok.AccessToken,
		TokenType:   tokenType,
		ExpiresAt:   tok.Expiry,
	}, nil
}
