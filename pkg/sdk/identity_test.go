package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beanbocchi/genestack/internal/testserver"
)

type staticProvider map[string]Identity

func (p staticProvider) Identity(alias string) (Identity, error) {
	identity, ok := p[alias]
	if !ok {
		return Identity{}, fmt.Errorf("unknown user %q", alias)
	}
	return identity, nil
}

func TestConnect(t *testing.T) {
	srv := startServer(t, testserver.Options{})
	ctx := context.Background()

	provider := staticProvider{
		"":      {Email: testEmail, Host: srv.URL(), Password: testPassword},
		"wrong": {Email: testEmail, Host: srv.URL(), Password: "nope"},
		"bad":   {Email: testEmail, Host: "not a url", Password: testPassword},
	}
	base := SessionConfig{
		ServerURL:     "http://ignored.invalid",
		ClientVersion: "1.0.0",
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	t.Run("default identity", func(t *testing.T) {
		session, err := Connect(ctx, provider, "", base)
		require.NoError(t, err)
		t.Cleanup(func() { session.Close() })

		require.Equal(t, srv.URL(), session.ServerURL())
		email, err := session.WhoAmI(ctx)
		require.NoError(t, err)
		require.Equal(t, testEmail, email)
	})

	t.Run("rejected password", func(t *testing.T) {
		_, err := Connect(ctx, provider, "wrong", base)
		require.True(t, errors.Is(err, ErrAuthentication), "got %v", err)
	})

	t.Run("invalid host", func(t *testing.T) {
		_, err := Connect(ctx, provider, "bad", base)
		require.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
	})

	t.Run("unknown alias", func(t *testing.T) {
		_, err := Connect(ctx, provider, "nobody", base)
		require.ErrorContains(t, err, `unknown user "nobody"`)
	})
}
