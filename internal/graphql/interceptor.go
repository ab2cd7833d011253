package graphql

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// TokenSource yields the OAuth token of the logged-in user, or "".
type TokenSource interface {
	AccessToken() string
}

// InterceptorConfig configures an Interceptor.
type InterceptorConfig struct {
	Endpoint  string
	ClientID  string
	AppUUID   string
	UserAgent string
	Tokens    TokenSource
	Base      http.RoundTripper
}

// Interceptor decorates requests bound for the API host with the client
// credentials. Requests to any other host pass through untouched.
type Interceptor struct {
	host      string
	clientID  string
	appUUID   string
	userAgent string
	tokens    TokenSource
	base      http.RoundTripper
}

// AppUUIDHeader carries the install identifier.
const AppUUIDHeader = "X-App-UUID"

// NewInterceptor validates cfg and returns an Interceptor.
func NewInterceptor(cfg InterceptorConfig) (*Interceptor, error) {
	parsed, err := url.Parse(strings.TrimSpace(cfg.Endpoint))
	if err != nil {
		return nil, err
	}
	if parsed.Host == "" {
		return nil, errors.New("graphql endpoint must include a host")
	}
	base := cfg.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return &Interceptor{
		host:      strings.ToLower(parsed.Host),
		clientID:  cfg.ClientID,
		appUUID:   cfg.AppUUID,
		userAgent: cfg.UserAgent,
		tokens:    cfg.Tokens,
		base:      base,
	}, nil
}

// IsAPIURL reports whether u targets the API host.
func (i *Interceptor) IsAPIURL(u *url.URL) bool {
	return u != nil && strings.EqualFold(u.Host, i.host)
}

// RoundTrip implements http.RoundTripper.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if !i.IsAPIURL(req.URL) {
		return i.base.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	out.Header.Set("Accept", "application/json")
	if i.appUUID != "" {
		out.Header.Set(AppUUIDHeader, i.appUUID)
	}
	if i.userAgent != "" {
		out.Header.Set("User-Agent", i.userAgent)
	}
	query := out.URL.Query()
	if i.clientID != "" {
		query.Set("client_id", i.clientID)
	}
	if i.tokens != nil {
		if token := i.tokens.AccessToken(); token != "" {
			query.Set("oauth_token", token)
		}
	}
	out.URL.RawQuery = query.Encode()
	return i.base.RoundTrip(out)
}
