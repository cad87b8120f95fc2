package sdk

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/beanbocchi/genestack/internal/model"
	"github.com/beanbocchi/genestack/internal/utils/progress"
	"github.com/beanbocchi/genestack/pkg/telemetry"
)

const (
	// DefaultMaxUploadHops bounds the number of server redirects followed
	// during a single upload.
	DefaultMaxUploadHops = 1000

	closeTimeout = 10 * time.Second
)

// ProgressReporter receives upload progress: the bytes added by the latest
// read and the total size of the named file.
type ProgressReporter interface {
	Report(name string, n, total int64)
}

// SessionConfig holds configuration for creating a Session.
type SessionConfig struct {
	// ServerURL is the base address, scheme and host plus an optional path
	// prefix, e.g. "https://platform.genestack.org/endpoint".
	ServerURL string
	// HTTPClient supplies the transport and timeout. Its Jar and
	// CheckRedirect are replaced. If nil, a zero http.Client is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// Telemetry records spans and metrics. May be nil.
	Telemetry *telemetry.Manager
	// ClientVersion is checked against the server at login. Defaults to Version.
	ClientVersion string
	// Progress creates the reporter for each upload. Defaults to a terminal
	// percentage line when stdout is a TTY and a dotted bar otherwise,
	// both written to stderr.
	Progress func() ProgressReporter
	// MaxUploadHops defaults to DefaultMaxUploadHops.
	MaxUploadHops int
}

// Session is a cookie-bearing conversation with one application server.
//
// Requests made with and without redirect following share one cookie jar,
// so authentication carries across both. A Session is not safe for
// concurrent use: use one Session per goroutine or serialize access.
type Session struct {
	baseURL  string
	jar      http.CookieJar
	follow   *http.Client
	noFollow *http.Client

	logger        *slog.Logger
	telemetry     *telemetry.Manager
	clientVersion string
	progress      func() ProgressReporter
	maxUploadHops int
}

// NewSession creates a Session for serverURL with default settings.
func NewSession(serverURL string) (*Session, error) {
	return NewSessionWithConfig(SessionConfig{ServerURL: serverURL})
}

// NewSessionWithConfig creates a Session from config.
func NewSessionWithConfig(config SessionConfig) (*Session, error) {
	if config.ServerURL == "" {
		return nil, model.ErrConfiguration.Fmt("server URL is required")
	}
	parsed, err := url.Parse(config.ServerURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, model.ErrConfiguration.Fmt("invalid server URL " + config.ServerURL).Wrap(err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, model.ErrConfiguration.Fmt("cookie jar").Wrap(err)
	}

	base := config.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clientVersion := config.ClientVersion
	if clientVersion == "" {
		clientVersion = Version
	}

	newProgress := config.Progress
	if newProgress == nil {
		newProgress = func() ProgressReporter { return progress.Auto(os.Stderr) }
	}

	maxHops := config.MaxUploadHops
	if maxHops <= 0 {
		maxHops = DefaultMaxUploadHops
	}

	return &Session{
		baseURL: strings.TrimRight(config.ServerURL, "/"),
		jar:     jar,
		follow: &http.Client{
			Transport: base.Transport,
			Timeout:   base.Timeout,
			Jar:       jar,
		},
		noFollow: &http.Client{
			Transport: base.Transport,
			Timeout:   base.Timeout,
			Jar:       jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:        logger,
		telemetry:     config.Telemetry,
		clientVersion: clientVersion,
		progress:      newProgress,
		maxUploadHops: maxHops,
	}, nil
}

// ServerURL returns the base address requests are issued against.
func (s *Session) ServerURL() string {
	return s.baseURL
}

// Cookies returns the cookies the session would send to path.
func (s *Session) Cookies(path string) []*http.Cookie {
	u, err := url.Parse(s.resolve(path))
	if err != nil {
		return nil
	}
	return s.jar.Cookies(u)
}

// Close signs out on a best-effort basis and releases idle connections.
// Sign-out failures are logged at debug level and never returned.
func (s *Session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := s.Logout(ctx); err != nil {
		s.logger.DebugContext(ctx, "sign out on close failed", "server", s.baseURL, "error", err)
	}
	s.follow.CloseIdleConnections()
	return nil
}

func (s *Session) String() string {
	return "Session(" + s.baseURL + ")"
}
