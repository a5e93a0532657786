package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/news_guard/internal/service"
	"github.com/Skotchmaster/news_guard/internal/tokens"
)

// toHTTPError maps service failures onto fixed client messages. Internal
// detail stays in the logs.
func toHTTPError(err error) *echo.HTTPError {
	var ce *service.ConflictError
	var ve *tokens.ValidationError
	switch {
	case errors.As(err, &ce):
		return echo.NewHTTPError(http.StatusConflict, echo.Map{"message": ce.Error(), "field": ce.Field})
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	case errors.As(err, &ve) && ve.Retryable():
		return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{"message": "unauthenticated", "retryable": true})
	case errors.Is(err, service.ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrSearchDisabled):
		return echo.NewHTTPError(http.StatusNotFound, "history search is not enabled")
	case errors.Is(err, service.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many concurrent requests")
	case errors.Is(err, service.ErrExternalServiceDegraded):
		return echo.NewHTTPError(http.StatusBadGateway, "external model unavailable")
	case errors.Is(err, service.ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
