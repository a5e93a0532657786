package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	AuthHandler  *AuthHTTP
	NewsHandler  *NewsHTTP
	AdminHandler *AdminHTTP
	Session      *SessionAuth
	// Ready reports whether the store is reachable.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
			}
		}
		return c.NoContent(http.StatusOK)
	})

	auth := e.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)

	private := e.Group("", d.Session.RequireAuth)
	private.GET("/auth/me", d.AuthHandler.Me)
	private.POST("/predict", d.NewsHandler.Predict)
	private.POST("/generate", d.NewsHandler.Generate)
	private.GET("/history/predictions", d.NewsHandler.PredictionHistory)
	private.GET("/history/generations", d.NewsHandler.GenerationHistory)
	private.GET("/history/search", d.NewsHandler.SearchHistory)

	admin := private.Group("/admin", RequireAdmin)
	admin.GET("/users", d.AdminHandler.ListUsers)
	admin.PATCH("/users/:id", d.AdminHandler.SetActive)
}
