package sdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/beanbocchi/genestack/internal/model"
)

const (
	extendSessionHeader = "gs-extendSession"

	contentTypeForm   = "application/x-www-form-urlencoded"
	contentTypeBinary = "application/octet-stream"
)

// FormFile is one file part of a multipart request.
type FormFile struct {
	Field   string
	Name    string
	Content io.Reader
}

// Open posts body to path and returns the raw response; the caller closes
// its body.
//
// body may be nil, a string, a []byte, an io.Reader (streamed as-is), or
// url.Values / map[string]string (URL-encoded form).
//
// With follow set, redirects are followed and a 401 fails with
// ErrAuthentication. Without it, redirects and 401 are returned as they
// are so the caller can inspect status and headers. Any other status of
// 400 or above fails with ErrUnexpectedStatus.
func (s *Session) Open(ctx context.Context, path string, body any, follow bool) (*http.Response, error) {
	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := s.newRequest(ctx, http.MethodPost, path, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.do(req, follow)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest && (follow || resp.StatusCode != http.StatusUnauthorized) {
		discard(resp)
		return nil, model.ErrUnexpectedStatus.Fmt(resp.StatusCode, req.URL.String())
	}
	return resp, nil
}

// Get issues a GET with query parameters and returns the raw response.
// With follow set, a 401 fails with ErrAuthentication.
func (s *Session) Get(ctx context.Context, path string, query url.Values, follow bool) (*http.Response, error) {
	req, err := s.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	if len(query) > 0 {
		q := req.URL.Query()
		for key, values := range query {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	return s.do(req, follow)
}

// PostMultipart streams a multipart form to path and returns the raw
// response. With follow set, a 401 fails with ErrAuthentication.
func (s *Session) PostMultipart(ctx context.Context, path string, fields map[string]string, files []FormFile, follow bool) (*http.Response, error) {
	// Stream multipart to avoid buffering whole files in memory.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	writeErr := make(chan error, 1)

	go func() {
		defer close(writeErr)
		defer pw.Close()

		for name, value := range fields {
			if err := writer.WriteField(name, value); err != nil {
				pw.CloseWithError(err)
				writeErr <- fmt.Errorf("write field %s: %w", name, err)
				return
			}
		}

		for _, file := range files {
			part, err := writer.CreateFormFile(file.Field, file.Name)
			if err != nil {
				pw.CloseWithError(err)
				writeErr <- fmt.Errorf("create form file: %w", err)
				return
			}
			if _, err := io.Copy(part, file.Content); err != nil {
				pw.CloseWithError(err)
				writeErr <- fmt.Errorf("copy file %s: %w", file.Name, err)
				return
			}
		}

		if err := writer.Close(); err != nil {
			pw.CloseWithError(err)
			writeErr <- fmt.Errorf("close writer: %w", err)
			return
		}
	}()

	req, err := s.newRequest(ctx, http.MethodPost, path, pr)
	if err != nil {
		pr.CloseWithError(err)
		<-writeErr
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.do(req, follow)
	if err != nil {
		// Ensure writer goroutine finishes.
		pr.CloseWithError(err)
		<-writeErr
		return nil, err
	}

	if wErr := <-writeErr; wErr != nil {
		discard(resp)
		return nil, wErr
	}
	return resp, nil
}

// resolve turns a path into an absolute URL. Absolute URLs, such as
// Location headers, are used unchanged.
func (s *Session) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return s.baseURL + path
}

func (s *Session) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.resolve(path), body)
	if err != nil {
		return nil, model.ErrConfiguration.Fmt("build request for " + path).Wrap(err)
	}
	return req, nil
}

// do executes req in the requested redirect mode. Network failures become
// *ConnectionError; a 401 in follow mode becomes ErrAuthentication.
func (s *Session) do(req *http.Request, follow bool) (*http.Response, error) {
	client := s.noFollow
	if follow {
		client = s.follow
		req.Header.Set(extendSessionHeader, "true")
	}

	s.logger.DebugContext(req.Context(), "genestack request",
		"method", req.Method,
		"url", req.URL.String(),
		"follow", follow,
	)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &model.ConnectionError{Address: req.URL.String(), Cause: err}
	}

	if follow && resp.StatusCode == http.StatusUnauthorized {
		discard(resp)
		return nil, model.ErrAuthentication
	}
	return resp, nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return strings.NewReader(""), "", nil
	case string:
		return strings.NewReader(b), contentTypeBinary, nil
	case []byte:
		return bytes.NewReader(b), contentTypeBinary, nil
	case url.Values:
		return strings.NewReader(b.Encode()), contentTypeForm, nil
	case map[string]string:
		values := make(url.Values, len(b))
		for key, value := range b {
			values.Set(key, value)
		}
		return strings.NewReader(values.Encode()), contentTypeForm, nil
	case io.Reader:
		return b, contentTypeBinary, nil
	default:
		return nil, "", model.ErrConfiguration.Fmt(fmt.Sprintf("unsupported request body %T", body))
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// discard drains and closes a response body so the connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
