package testserver

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Echo returns the query parameters and the names of the cookies received.
func (h *Handler) Echo(c echo.Context) error {
	cookies := make([]string, 0)
	for _, cookie := range c.Cookies() {
		cookies = append(cookies, cookie.Name)
	}
	query := make(map[string]string)
	for key := range c.QueryParams() {
		query[key] = c.QueryParam(key)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"query":   query,
		"cookies": cookies,
	})
}

// Redirect sets a cookie and redirects to /landing.
func (h *Handler) Redirect(c echo.Context) error {
	c.SetCookie(&http.Cookie{Name: "visited", Value: "redirect", Path: "/"})
	return c.Redirect(http.StatusFound, "/landing")
}

func (h *Handler) Landing(c echo.Context) error {
	_, err := c.Cookie("visited")
	return c.JSON(http.StatusOK, map[string]any{
		"landed":  true,
		"visited": err == nil,
	})
}

// Secret always answers 401 with a JSON body.
func (h *Handler) Secret(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]any{"authenticated": true})
}

// Multipart reports the form fields and the size of each uploaded file.
func (h *Handler) Multipart(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fields := make(map[string]string)
	for key, values := range form.Value {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}

	files := make(map[string]int64)
	for key, headers := range form.File {
		for _, header := range headers {
			f, err := header.Open()
			if err != nil {
				return err
			}
			n, err := io.Copy(io.Discard, f)
			f.Close()
			if err != nil {
				return err
			}
			files[key+"/"+header.Filename] = n
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"fields": fields,
		"files":  files,
	})
}
