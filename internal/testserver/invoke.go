package testserver

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/beanbocchi/genestack/pkg/response"
)

type invokeRequest struct {
	Method     string `form:"method" validate:"required"`
	Parameters string `form:"parameters"`
}

func (h *Handler) Invoke(c echo.Context) error {
	app := c.Param("vendor") + "/" + c.Param("app")

	var req invokeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusOK, response.FromErrorMessage(err.Error(), ""))
	}
	method := req.Method

	var params []any
	if req.Parameters != "" {
		if err := sonic.ConfigStd.UnmarshalFromString(req.Parameters, &params); err != nil {
			return c.JSON(http.StatusOK, response.FromErrorMessage("malformed parameters: "+err.Error(), ""))
		}
	}

	fn := h.srv.builtin(app, method)
	if fn == nil {
		h.srv.mu.Lock()
		fn = h.srv.methods[app+"."+method]
		h.srv.mu.Unlock()
	}
	if fn == nil {
		return c.JSON(http.StatusOK, response.FromErrorMessage("Method not found: "+app+"."+method, ""))
	}

	result, err := fn(c, params)
	if err != nil {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return c.JSON(http.StatusOK, response.ErrorResponse{Error: appErr.Payload, StackTrace: appErr.StackTrace})
		}
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) builtin(app, method string) MethodFunc {
	switch app + "." + method {
	case "genestack/signin.authenticate":
		return s.authenticate
	case "genestack/signin.whoami":
		return s.whoami
	case "genestack/signin.signOut":
		return s.signOut
	case "genestack/clientVersion.getCurrentVersion":
		return s.currentVersion
	}
	return nil
}

func (s *Server) authenticate(c echo.Context, params []any) (any, error) {
	if len(params) != 2 {
		return nil, &AppError{Payload: "authenticate expects email and password"}
	}
	email, _ := params[0].(string)
	password, _ := params[1].(string)

	s.mu.Lock()
	expected, ok := s.accounts[email]
	if !ok || expected != password {
		s.mu.Unlock()
		return response.AuthenticateResponse{Authenticated: false}, nil
	}
	token := uuid.NewString()
	s.sessions[token] = email
	s.mu.Unlock()

	c.SetCookie(&http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true})
	return response.AuthenticateResponse{Authenticated: true}, nil
}

func (s *Server) whoami(c echo.Context, _ []any) (any, error) {
	email, ok := s.user(c)
	if !ok {
		return nil, echo.ErrUnauthorized
	}
	return email, nil
}

func (s *Server) signOut(c echo.Context, _ []any) (any, error) {
	s.mu.Lock()
	fail := s.failSignOut
	s.mu.Unlock()
	if fail {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "sign out unavailable")
	}

	if cookie, err := c.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	return nil, nil
}

func (s *Server) currentVersion(_ echo.Context, _ []any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return response.VersionResponse{Latest: s.latest, Compatible: s.compatible}, nil
}
