package auth

import (
	"context"
	"net/http"
)

// StaticTokenProvider sends a token obtained outside of volley.
type StaticTokenProvider struct {
	token string
}

func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

func (p *StaticTokenProvider) Token(context.Context) (string, error) {
	return p.token, nil
}

func (p *StaticTokenProvider) InjectHeader(_ context.Context, req *http.Request) error {
	setBearer(req, p.token)
	return nil
}

func (p *StaticTokenProvider) Close() error { return nil }
