package sdk

import (
	"context"
	"fmt"
)

// Identity is a user account on one server.
type Identity struct {
	Email    string
	Host     string
	Password string
}

// IdentityProvider looks up identities. An empty alias asks for the
// default identity.
type IdentityProvider interface {
	Identity(alias string) (Identity, error)
}

// Connect resolves alias through provider, opens a Session against the
// identity's host and logs in. Fields of config other than ServerURL are
// used as given.
func Connect(ctx context.Context, provider IdentityProvider, alias string, config SessionConfig) (*Session, error) {
	identity, err := provider.Identity(alias)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	config.ServerURL = identity.Host
	session, err := NewSessionWithConfig(config)
	if err != nil {
		return nil, err
	}

	if _, err := session.Login(ctx, identity.Email, identity.Password); err != nil {
		session.follow.CloseIdleConnections()
		return nil, err
	}
	return session, nil
}
