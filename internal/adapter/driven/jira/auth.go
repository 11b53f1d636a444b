package jira

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// Supported authentication modes.
const (
	AuthToken  = "token"  // Basic auth with account email and API token.
	AuthBearer = "bearer" // Personal access token.
	AuthOAuth2 = "oauth2" // OAuth 2.0 client credentials.
)

// DefaultTokenURL is the Atlassian OAuth 2.0 token endpoint.
const DefaultTokenURL = "https://auth.atlassian.com/oauth/token"

const requestTimeout = 60 * time.Second

// AuthConfig holds the tracker credentials for one of the auth modes.
type AuthConfig struct {
	Type         string
	Username     string
	APIToken     string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// NewHTTPClient returns an http.Client that authenticates every request
// according to cfg.Type. An empty type means AuthToken.
func NewHTTPClient(ctx context.Context, cfg AuthConfig) (*http.Client, error) {
	switch cfg.Type {
	case "", AuthToken:
		return &http.Client{
			Timeout: requestTimeout,
			Transport: &tokenAuthTransport{
				email: cfg.Username,
				token: cfg.APIToken,
				base:  http.DefaultTransport,
			},
		}, nil
	case AuthBearer:
		return &http.Client{
			Timeout: requestTimeout,
			Transport: &bearerTransport{
				token: cfg.APIToken,
				base:  http.DefaultTransport,
			},
		}, nil
	case AuthOAuth2:
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = DefaultTokenURL
		}
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       cfg.Scopes,
		}
		client := cc.Client(ctx)
		client.Timeout = requestTimeout
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported tracker auth type %q", cfg.Type)
	}
}

type tokenAuthTransport struct {
	email string
	token string
	base  http.RoundTripper
}

func (t *tokenAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.email, t.token)
	return t.base.RoundTrip(req)
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}
