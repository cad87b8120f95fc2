package sdk

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/beanbocchi/genestack/internal/model"
	"github.com/beanbocchi/genestack/pkg/response"
)

// Version is the client version reported to the server at login.
const Version = "0.4.0"

// ClientVersion is the fixed application advertising the latest and the
// oldest compatible client versions.
type ClientVersion struct {
	*Application
}

func NewClientVersion(session *Session) (*ClientVersion, error) {
	app, err := NewApplicationWithConfig(session, ApplicationConfig{DefaultID: ClientVersionApplicationID})
	if err != nil {
		return nil, err
	}
	return &ClientVersion{Application: app}, nil
}

// Current returns the latest and compatible version strings.
func (a *ClientVersion) Current(ctx context.Context) (latest, compatible string, err error) {
	var out response.VersionResponse
	if err := a.InvokeInto(ctx, &out, "getCurrentVersion"); err != nil {
		return "", "", err
	}
	return out.Latest, out.Compatible, nil
}

// CheckVersion compares clientVersion with the versions published by the
// server. It returns an empty message when the client is current, a
// notice when the client is ahead or merely outdated, and
// ErrVersionTooOld when the client is older than the compatible version.
func (s *Session) CheckVersion(ctx context.Context, clientVersion string) (string, error) {
	app, err := NewClientVersion(s)
	if err != nil {
		return "", err
	}
	latestRaw, compatibleRaw, err := app.Current(ctx)
	if err != nil {
		return "", err
	}
	return CompareVersions(clientVersion, latestRaw, compatibleRaw)
}

// CompareVersions applies the compatibility rules to already fetched
// version strings. All three must be strict MAJOR.MINOR.PATCH versions.
func CompareVersions(clientVersion, latestVersion, compatibleVersion string) (string, error) {
	client, err := parseVersion("client", clientVersion)
	if err != nil {
		return "", err
	}
	latest, err := parseVersion("latest", latestVersion)
	if err != nil {
		return "", err
	}
	compatible, err := parseVersion("compatible", compatibleVersion)
	if err != nil {
		return "", err
	}

	switch {
	case latest.LessThan(client):
		return "You use version from future", nil
	case latest.Equal(client):
		return "", nil
	case !client.LessThan(compatible):
		return fmt.Sprintf("Newer version %q available, please update.", latestVersion), nil
	default:
		return "", model.ErrVersionTooOld.Fmt(clientVersion, latestVersion)
	}
}

func parseVersion(kind, raw string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(raw)
	if err != nil {
		return nil, model.ErrConfiguration.Fmt(fmt.Sprintf("invalid %s version %q", kind, raw)).Wrap(err)
	}
	return v, nil
}
