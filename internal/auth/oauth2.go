package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const tokenFetchTimeout = 30 * time.Second

// ClientCredentialsConfig configures the OAuth2 client credentials grant.
type ClientCredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// RefreshBeforeExpiry treats a token as expired this long before the
	// server says it is.
	RefreshBeforeExpiry time.Duration
}

// ClientCredentialsProvider fetches and caches tokens using the client
// credentials grant. Concurrent callers with an expired cache share one
// fetch.
type ClientCredentialsProvider struct {
	cfg    ClientCredentialsConfig
	client *http.Client
	now    func() time.Time
	group  singleflight.Group

	mu     sync.RWMutex
	token  string
	expiry time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// NewClientCredentialsProvider validates cfg and returns a provider. No
// token is fetched until the first request.
func NewClientCredentialsProvider(cfg ClientCredentialsConfig) (*ClientCredentialsProvider, error) {
	if cfg.TokenURL == "" {
		return nil, errors.New("oauth2: token url is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("oauth2: client id is required")
	}
	if cfg.RefreshBeforeExpiry < 0 {
		return nil, errors.New("oauth2: refresh before expiry must be non-negative")
	}
	return &ClientCredentialsProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: tokenFetchTimeout},
		now:    time.Now,
	}, nil
}

func (p *ClientCredentialsProvider) cached() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.token != "" && p.now().Before(p.expiry) {
		return p.token, true
	}
	return "", false
}

// Token returns the cached token or fetches a new one.
func (p *ClientCredentialsProvider) Token(ctx context.Context) (string, error) {
	if token, ok := p.cached(); ok {
		return token, nil
	}

	v, err, _ := p.group.Do("token", func() (any, error) {
		if token, ok := p.cached(); ok {
			return token, nil
		}
		token, expiresIn, err := p.fetch(ctx)
		if err != nil {
			return "", err
		}
		p.mu.Lock()
		p.token = token
		p.expiry = p.now().Add(time.Duration(expiresIn)*time.Second - p.cfg.RefreshBeforeExpiry)
		p.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (p *ClientCredentialsProvider) fetch(ctx context.Context) (string, int, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	if len(p.cfg.Scopes) > 0 {
		form.Set("scope", strings.Join(p.cfg.Scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("fetch token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", 0, fmt.Errorf("token request failed with status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", 0, fmt.Errorf("decode token response: %w", err)
	}
	if tr.Error != "" {
		return "", 0, fmt.Errorf("oauth2 error: %s: %s", tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return "", 0, errors.New("no access token in response")
	}
	return tr.AccessToken, tr.ExpiresIn, nil
}

func (p *ClientCredentialsProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	token, err := p.Token(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	setBearer(req, token)
	return nil
}

func (p *ClientCredentialsProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
