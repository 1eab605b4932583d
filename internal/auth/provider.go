// Package auth supplies the Authorization header attached to every
// request in a run.
package auth

import (
	"context"
	"net/http"
)

// Provider injects credentials into outgoing requests.
type Provider interface {
	// Token returns a valid access token, fetching one if needed.
	Token(ctx context.Context) (string, error)

	// InjectHeader sets the Authorization header on req.
	InjectHeader(ctx context.Context, req *http.Request) error

	Close() error
}

func setBearer(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}
