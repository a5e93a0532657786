package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/news_guard/internal/models"
	"github.com/Skotchmaster/news_guard/internal/tokens"
	"github.com/Skotchmaster/news_guard/pkg/logging"
)

const userKey = "user"

type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*models.User, error)
}

type SessionAuth struct {
	Resolver SessionResolver
}

func NewSessionAuth(r SessionResolver) *SessionAuth {
	return &SessionAuth{Resolver: r}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAuth resolves the bearer token once per request and stores the
// user for handlers.
func (m *SessionAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "require_auth")

		token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer`)
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		user, err := m.Resolver.ResolveSession(ctx, token)
		if err != nil {
			var ve *tokens.ValidationError
			if errors.As(err, &ve) {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer error="invalid_token"`)
				l.Warn("auth_error", "status", 401, "reason", ve.Kind.String())
			} else {
				l.Warn("auth_error", "error", err)
			}
			return toHTTPError(err)
		}

		c.Set(userKey, user)
		c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", user.ID))))
		return next(c)
	}
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := currentUser(c)
		if user == nil || !user.IsAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "forbidden")
		}
		return next(c)
	}
}

func currentUser(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}
