package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/complyx/complyx/pkg/schema"
)

const (
	HeaderUserID       = "X-User-ID"
	HeaderGatewayToken = "X-Gateway-Token"
)

// AuthProvider resolves the user behind a request.
type AuthProvider interface {
	Authenticate(r *http.Request) (*schema.User, error)
}

// UserResolver loads an active user by id.
type UserResolver interface {
	Authenticate(id string) (*schema.User, error)
}

// HeaderAuthProvider trusts an upstream gateway that has already
// authenticated the caller and forwards its id in X-User-ID. When Token is
// set the gateway must also present it in X-Gateway-Token.
type HeaderAuthProvider struct {
	Users UserResolver
	Token string
}

func (p *HeaderAuthProvider) Authenticate(r *http.Request) (*schema.User, error) {
	if p.Token != "" {
		got := r.Header.Get(HeaderGatewayToken)
		if subtle.ConstantTimeCompare([]byte(got), []byte(p.Token)) != 1 {
			return nil, fmt.Errorf("gateway token mismatch: %w", schema.ErrUnauthenticated)
		}
	}
	id := r.Header.Get(HeaderUserID)
	if id == "" {
		return nil, fmt.Errorf("missing %s header: %w", HeaderUserID, schema.ErrUnauthenticated)
	}
	return p.Users.Authenticate(id)
}
