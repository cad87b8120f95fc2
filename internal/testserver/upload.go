package testserver

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/beanbocchi/genestack/internal/utils/blake3"
	"github.com/beanbocchi/genestack/pkg/response"
)

// Upload keeps at most ChunkSize bytes of each hop. While bytes are missing
// it answers 307 with a Location for the next hop and a Range header
// acknowledging what it holds.
func (h *Handler) Upload(c echo.Context) error {
	if _, ok := h.srv.user(c); !ok {
		return echo.ErrUnauthorized
	}

	app := c.Param("vendor") + "/" + c.Param("app")
	token := c.Param("token")
	filename, err := url.PathUnescape(c.Param("filename"))
	if err != nil {
		filename = c.Param("filename")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s := h.srv
	s.mu.Lock()
	up, ok := s.tokens[token]
	if !ok || up.app != app {
		s.mu.Unlock()
		return c.JSON(http.StatusOK, response.FromErrorMessage("Invalid upload token", ""))
	}
	up.filename = filename

	kept := int64(len(body))
	if s.chunkSize > 0 && kept > s.chunkSize {
		kept = s.chunkSize
	}
	up.data = append(up.data, body[:kept]...)
	up.hops++
	complete := kept == int64(len(body))
	extra := complete && up.extra > 0
	if extra {
		up.extra--
	}
	held := int64(len(up.data))
	hop := up.hops
	var data []byte
	if complete && !extra {
		data = up.data
		s.uploads[filename] = data
		delete(s.tokens, token)
	}
	s.mu.Unlock()

	if !complete || extra {
		next := fmt.Sprintf("/application/upload/%s/%s/%s?chunk=%d", app, token, url.PathEscape(filename), hop)
		if !extra {
			c.Response().Header().Set("Range", fmt.Sprintf("bytes=0-%d", held-1))
		}
		return c.Redirect(http.StatusTemporaryRedirect, next)
	}

	digest, err := blake3.Compute(bytes.NewReader(data))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, response.UploadResponse{
		File:   filename,
		Size:   held,
		Digest: digest,
	})
}
