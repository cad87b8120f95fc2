package config

import (
	"strings"

	"github.com/beanbocchi/genestack/internal/model"
	"github.com/beanbocchi/genestack/pkg/sdk"
)

// DefaultHost is used for ad-hoc identities given without a host.
const DefaultHost = "https://platform.genestack.org/endpoint"

// PasswordPrompt asks for the password of email.
type PasswordPrompt func(email string) (string, error)

// Provider resolves identities from stored users and command-line
// overrides. It implements sdk.IdentityProvider.
//
// Without a host or password override, an empty alias selects the default
// user and a known alias selects that user. In every other case the alias
// is taken as an email and combined with the overrides.
type Provider struct {
	Config   *Config
	Host     string
	Password string
	// Prompt is asked when the resolved identity has no password. If nil,
	// a missing password is an error.
	Prompt PasswordPrompt
}

var _ sdk.IdentityProvider = (*Provider)(nil)

func (p *Provider) Identity(alias string) (sdk.Identity, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = &Config{}
	}

	if p.Host == "" && p.Password == "" {
		if alias == "" && cfg.DefaultUser != "" {
			if user, ok := cfg.User(cfg.DefaultUser); ok {
				return p.complete(user.Email, user.Host, user.Password.ValueOrZero())
			}
		}
		if user, ok := cfg.User(alias); ok && alias != "" {
			return p.complete(user.Email, user.Host, user.Password.ValueOrZero())
		}
	}

	if alias == "" {
		return sdk.Identity{}, model.ErrConfiguration.Fmt("user was not specified and no default user is configured")
	}
	host := p.Host
	if host == "" {
		host = DefaultHost
	}
	return p.complete(alias, NormalizeHost(host), p.Password)
}

func (p *Provider) complete(email, host, password string) (sdk.Identity, error) {
	if password == "" {
		if p.Prompt == nil {
			return sdk.Identity{}, model.ErrConfiguration.Fmt("no password for " + email)
		}
		var err error
		password, err = p.Prompt(email)
		if err != nil {
			return sdk.Identity{}, model.ErrConfiguration.Fmt("read password for " + email).Wrap(err)
		}
	}
	return sdk.Identity{Email: email, Host: host, Password: password}, nil
}

// NormalizeHost turns a bare host name such as "platform.genestack.org"
// into the server's endpoint address. Addresses with a scheme are kept.
func NormalizeHost(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "https://" + strings.TrimRight(host, "/") + "/endpoint"
}
