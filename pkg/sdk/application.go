package sdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/beanbocchi/genestack/internal/model"
	"github.com/beanbocchi/genestack/pkg/telemetry"
)

// ApplicationConfig names the application to bind. Exactly one of ID and
// DefaultID must be set: ID is the caller's explicit choice, DefaultID is
// supplied by typed wrappers such as SignIn.
type ApplicationConfig struct {
	ID        string
	DefaultID string
}

// Application invokes methods of one remote application, identified as
// "{vendor}/{application}", through a Session.
type Application struct {
	session *Session
	id      string
}

// NewApplication binds the application id to session.
func NewApplication(session *Session, id string) (*Application, error) {
	return NewApplicationWithConfig(session, ApplicationConfig{ID: id})
}

// NewApplicationWithConfig binds an application, validating its id.
func NewApplicationWithConfig(session *Session, config ApplicationConfig) (*Application, error) {
	if session == nil {
		return nil, model.ErrConfiguration.Fmt("session is required")
	}
	if config.ID != "" && config.DefaultID != "" {
		return nil, model.ErrConfiguration.Fmt("application ID specified both explicitly and as a default")
	}
	id := config.ID
	if id == "" {
		id = config.DefaultID
	}
	if id == "" {
		return nil, model.ErrConfiguration.Fmt("application ID was not specified")
	}
	if err := ValidateApplicationID(id); err != nil {
		return nil, err
	}
	return &Application{session: session, id: id}, nil
}

// Application binds the application id to s.
func (s *Session) Application(id string) (*Application, error) {
	return NewApplication(s, id)
}

// ValidateApplicationID checks that id has the form "{vendor}/{application}".
func ValidateApplicationID(id string) error {
	if strings.Count(id, "/") != 1 {
		return model.ErrConfiguration.Fmt(fmt.Sprintf(`invalid application ID, expect "{vendor}/{application}" got: %q`, id))
	}
	return nil
}

// ID returns the application id.
func (a *Application) ID() string {
	return a.id
}

func (a *Application) Session() *Session {
	return a.session
}

// Invoke calls method with params and returns the decoded JSON result.
// Params must be JSON serializable. A response carrying an "error" key
// fails with *ServerError.
func (a *Application) Invoke(ctx context.Context, method string, params ...any) (result any, err error) {
	form := url.Values{"method": {method}}
	if len(params) > 0 {
		encoded, err := sonic.ConfigStd.MarshalToString(params)
		if err != nil {
			return nil, model.ErrConfiguration.Fmt("encode parameters of " + method).Wrap(err)
		}
		form.Set("parameters", encoded)
	}

	callID := uuid.NewString()
	ctx, span := a.session.telemetry.StartInvoke(ctx, a.id, method, callID)
	start := time.Now()
	defer func() {
		telemetry.EndSpan(span, err)
		a.session.telemetry.RecordInvoke(ctx, telemetry.InvokeData{
			Application: a.id,
			Method:      method,
			Duration:    time.Since(start),
			Error:       err,
		})
	}()

	a.session.logger.DebugContext(ctx, "invoke", "application", a.id, "method", method, "call_id", callID)

	path := "/application/invoke/" + a.id
	resp, err := a.session.Open(ctx, path, form, true)
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp, path, form)
}

// InvokeInto calls method and decodes its result into out.
func (a *Application) InvokeInto(ctx context.Context, out any, method string, params ...any) error {
	result, err := a.Invoke(ctx, method, params...)
	if err != nil {
		return err
	}

	dataBytes, err := sonic.ConfigStd.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result of %s: %w", method, err)
	}
	if err := sonic.ConfigStd.Unmarshal(dataBytes, out); err != nil {
		return model.ErrInvalidResponse.Fmt(a.id + "." + method).Wrap(err)
	}
	return nil
}

// decodeResponse reads and closes resp, returning the decoded JSON value or
// the server error it carries.
func decodeResponse(resp *http.Response, path string, request url.Values) (any, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.ConnectionError{Address: resp.Request.URL.String(), Cause: err}
	}

	var result any
	if err := sonic.ConfigStd.Unmarshal(body, &result); err != nil {
		return nil, model.ErrInvalidResponse.Fmt(path).Wrap(err)
	}

	if object, ok := result.(map[string]any); ok {
		if payload, ok := object["error"]; ok {
			serverErr := &model.ServerError{
				Payload: payload,
				Path:    path,
				Request: request,
			}
			if trace, ok := object["errorStackTrace"]; ok && trace != nil {
				serverErr.StackTrace = fmt.Sprint(trace)
			}
			return nil, serverErr
		}
	}
	return result, nil
}
