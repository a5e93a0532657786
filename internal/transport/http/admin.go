package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/news_guard/internal/models"
	"github.com/Skotchmaster/news_guard/internal/service"
)

type AdminHTTP struct {
	Svc *service.AuthService
}

func (h *AdminHTTP) ListUsers(c echo.Context) error {
	page, size := pageParams(c)
	res, err := h.Svc.ListUsers(c.Request().Context(), currentUser(c), page, size)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pageResponse[models.User]{Items: res.Items, Total: res.Total, Page: res.Page, Size: res.Size})
}

func (h *AdminHTTP) SetActive(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var req setActiveRequest
	if err := c.Bind(&req); err != nil || req.IsActive == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "is_active is required")
	}

	user, err := h.Svc.SetActive(c.Request().Context(), currentUser(c), uint(id), *req.IsActive)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, user)
}
