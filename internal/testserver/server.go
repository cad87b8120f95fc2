// Package testserver runs an in-process application server that speaks the
// invoke and upload protocol. It backs the SDK tests and the examples.
package testserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/beanbocchi/genestack/pkg/validator"
)

const SessionCookie = "JSESSIONID"

// MethodFunc implements an application method. Returning *AppError yields
// an {"error": ...} body; returning an *echo.HTTPError yields that status.
type MethodFunc func(c echo.Context, params []any) (any, error)

// AppError is reported to the client as an application error.
type AppError struct {
	Payload    any
	StackTrace string
}

func (e *AppError) Error() string {
	return "application error"
}

type Options struct {
	// Accounts maps email to password.
	Accounts map[string]string
	// Latest and Compatible are served by genestack/clientVersion.
	Latest     string
	Compatible string
	// ChunkSize caps the bytes kept per upload hop. Zero keeps everything.
	ChunkSize int64
	// ExtraHops adds redirects without a Range header after an upload has
	// received all of its bytes.
	ExtraHops int
}

type upload struct {
	app      string
	filename string
	data     []byte
	hops     int
	extra    int
}

type Server struct {
	echo *echo.Echo
	http *httptest.Server

	mu            sync.Mutex
	accounts      map[string]string
	sessions      map[string]string
	latest        string
	compatible    string
	chunkSize     int64
	extraHops     int
	methods       map[string]MethodFunc
	tokens        map[string]*upload
	uploads       map[string][]byte
	extendSession int
	failSignOut   bool
}

// New builds a server; call Start to serve it.
func New(opts Options) *Server {
	s := &Server{
		accounts:   make(map[string]string),
		sessions:   make(map[string]string),
		latest:     opts.Latest,
		compatible: opts.Compatible,
		chunkSize:  opts.ChunkSize,
		extraHops:  opts.ExtraHops,
		methods:    make(map[string]MethodFunc),
		tokens:     make(map[string]*upload),
		uploads:    make(map[string][]byte),
	}
	for email, password := range opts.Accounts {
		s.accounts[email] = password
	}
	if s.latest == "" {
		s.latest = "1.0.0"
	}
	if s.compatible == "" {
		s.compatible = s.latest
	}

	customVal, err := validator.New()
	if err != nil {
		panic(fmt.Sprintf("testserver: %v", err))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = customVal
	e.Use(middleware.Recover())
	e.Use(s.trackExtendSession)
	SetupRoute(e, s)
	s.echo = e
	return s
}

// Start serves the server on a loopback address and returns its URL.
func Start(opts Options) *Server {
	s := New(opts)
	s.http = httptest.NewServer(s.echo)
	return s
}

func (s *Server) URL() string {
	return s.http.URL
}

func (s *Server) Close() {
	if s.http != nil {
		s.http.Close()
	}
}

// Handler exposes the routes for callers that serve them elsewhere.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Handle registers method on application app, e.g. "genestack/files".
func (s *Server) Handle(app, method string, fn MethodFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[app+"."+method] = fn
}

// IssueToken authorizes one upload to app.
func (s *Server) IssueToken(app string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.tokens[token] = &upload{app: app, extra: s.extraHops}
	return token
}

func (s *Server) SetVersions(latest, compatible string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest, s.compatible = latest, compatible
}

// FailSignOut makes signOut answer with an internal server error.
func (s *Server) FailSignOut(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSignOut = fail
}

// Upload returns the stored content of a finished upload.
func (s *Server) Upload(filename string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.uploads[filename]
	return data, ok
}

// ActiveSessions counts signed-in sessions.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ExtendSessionRequests counts requests carrying gs-extendSession: true.
func (s *Server) ExtendSessionRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extendSession
}

func (s *Server) trackExtendSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get("gs-extendSession") == "true" {
			s.mu.Lock()
			s.extendSession++
			s.mu.Unlock()
		}
		return next(c)
	}
}

// user returns the email bound to the request's session cookie.
func (s *Server) user(c echo.Context) (string, bool) {
	cookie, err := c.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.sessions[cookie.Value]
	return email, ok
}
