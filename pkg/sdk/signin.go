package sdk

import (
	"context"
	"fmt"

	"github.com/beanbocchi/genestack/internal/model"
	"github.com/beanbocchi/genestack/pkg/response"
)

const (
	SignInApplicationID        = "genestack/signin"
	ClientVersionApplicationID = "genestack/clientVersion"
)

// SignIn is the fixed authentication application.
type SignIn struct {
	*Application
}

func NewSignIn(session *Session) (*SignIn, error) {
	app, err := NewApplicationWithConfig(session, ApplicationConfig{DefaultID: SignInApplicationID})
	if err != nil {
		return nil, err
	}
	return &SignIn{Application: app}, nil
}

// Authenticate reports whether the server accepted the credentials.
func (a *SignIn) Authenticate(ctx context.Context, email, password string) (bool, error) {
	var out response.AuthenticateResponse
	if err := a.InvokeInto(ctx, &out, "authenticate", email, password); err != nil {
		return false, err
	}
	return out.Authenticated, nil
}

func (a *SignIn) SignOut(ctx context.Context) error {
	_, err := a.Invoke(ctx, "signOut")
	return err
}

// WhoAmI returns the email of the signed-in user.
func (a *SignIn) WhoAmI(ctx context.Context) (string, error) {
	result, err := a.Invoke(ctx, "whoami")
	if err != nil {
		return "", err
	}
	email, ok := result.(string)
	if !ok {
		return "", model.ErrInvalidResponse.Fmt(a.id + ".whoami").Wrap(fmt.Errorf("expected string, got %T", result))
	}
	return email, nil
}

// Login authenticates the session and checks client compatibility. A
// non-empty notice describes an available update or a pre-release client;
// it is also logged as a warning. A client too old for the server fails
// with ErrVersionTooOld.
func (s *Session) Login(ctx context.Context, email, password string) (string, error) {
	signIn, err := NewSignIn(s)
	if err != nil {
		return "", err
	}

	authenticated, err := signIn.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	if !authenticated {
		return "", model.ErrAuthentication.Wrap(fmt.Errorf("fail to login %s", email))
	}

	notice, err := s.CheckVersion(ctx, s.clientVersion)
	if err != nil {
		return "", err
	}
	if notice != "" {
		s.logger.WarnContext(ctx, notice, "server", s.baseURL, "client_version", s.clientVersion)
	}
	return notice, nil
}

func (s *Session) Logout(ctx context.Context) error {
	signIn, err := NewSignIn(s)
	if err != nil {
		return err
	}
	return signIn.SignOut(ctx)
}

func (s *Session) WhoAmI(ctx context.Context) (string, error) {
	signIn, err := NewSignIn(s)
	if err != nil {
		return "", err
	}
	return signIn.WhoAmI(ctx)
}
