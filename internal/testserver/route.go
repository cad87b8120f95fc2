package testserver

import (
	"github.com/labstack/echo/v4"
)

type Handler struct {
	srv *Server
}

func SetupRoute(e *echo.Echo, srv *Server) {
	h := &Handler{srv: srv}
	app := e.Group("/application")

	app.POST("/invoke/:vendor/:app", h.Invoke)
	app.POST("/upload/:vendor/:app/:token/:filename", h.Upload)

	e.GET("/echo", h.Echo)
	e.GET("/redirect", h.Redirect)
	e.GET("/landing", h.Landing)
	e.POST("/landing", h.Landing)
	e.POST("/redirect", h.Redirect)
	e.GET("/secret", h.Secret)
	e.POST("/secret", h.Secret)
	e.POST("/multipart", h.Multipart)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
}
