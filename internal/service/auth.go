package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Skotchmaster/news_guard/internal/hash"
	"github.com/Skotchmaster/news_guard/internal/models"
	"github.com/Skotchmaster/news_guard/internal/repo"
	"github.com/Skotchmaster/news_guard/internal/tokens"
	"github.com/Skotchmaster/news_guard/internal/util"
	"github.com/Skotchmaster/news_guard/pkg/logging"
)

const (
	maxUsernameLen = 50
	maxEmailLen    = 100
)

type AuthService struct {
	Users  UserStore
	Hasher *hash.Hasher
	Tokens *tokens.Issuer
	Events EventPublisher
	// Background carries the registration event; nil publishes inline.
	Background *Background
}

type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	User        *models.User
}

func validateRegistration(username, email, password string) error {
	switch {
	case strings.TrimSpace(username) == "":
		return validationf("username is required")
	case utf8.RuneCountInString(username) > maxUsernameLen:
		return validationf("username must be at most %d characters", maxUsernameLen)
	case strings.TrimSpace(email) == "":
		return validationf("email is required")
	case utf8.RuneCountInString(email) > maxEmailLen:
		return validationf("email must be at most %d characters", maxEmailLen)
	case !strings.Contains(email, "@"):
		return validationf("email is invalid")
	case password == "":
		return validationf("password is required")
	case len(password) > hash.MaxPasswordBytes:
		return validationf("password must be at most %d bytes", hash.MaxPasswordBytes)
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	digest, err := s.Hasher.Hash(password)
	if errors.Is(err, hash.ErrPasswordTooLong) {
		return nil, validationf("password must be at most %d bytes", hash.MaxPasswordBytes)
	}
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:       username,
		Email:          email,
		PasswordDigest: digest,
		IsActive:       true,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		var dup *repo.DuplicateError
		if errors.As(err, &dup) {
			l.Warn("register_error", "status", 409, "reason", "duplicate", "field", dup.Field)
			return nil, &ConflictError{Field: dup.Field}
		}
		l.Error("register_error", "status", 503, "error", err)
		return nil, storeErr(err)
	}

	l.Info("user_registered", "user_id", user.ID)
	s.Background.publish(ctx, s.Events, EventUserRegistered, user.ID, 0, nil)
	return user, nil
}

// Authenticate checks a username/password pair. An unknown username costs
// the same single bcrypt comparison as a wrong password and yields the same
// error.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.authenticate")

	user, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Hasher.VerifyDummy(password)
			return nil, ErrInvalidCredentials
		}
		l.Error("authenticate_error", "status", 503, "error", err)
		return nil, storeErr(err)
	}

	if !s.Hasher.Verify(password, user.PasswordDigest) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		l.Warn("authenticate_error", "status", 401, "reason", "inactive account", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if username == "" || password == "" {
		return nil, validationf("username and password are required")
	}

	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	issued, err := s.Tokens.Issue(user.Username, 0)
	if err != nil {
		l.Error("login_error", "status", 500, "error", err)
		return nil, err
	}

	l.Info("login_successful", "user_id", user.ID)
	return &LoginResult{
		AccessToken: issued.Token,
		TokenType:   "bearer",
		ExpiresAt:   issued.ExpiresAt,
		User:        user,
	}, nil
}

// ResolveSession maps a bearer token to its active user with exactly one
// store lookup.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.session")

	subject, err := s.Tokens.Validate(token)
	if err != nil {
		var ve *tokens.ValidationError
		if errors.As(err, &ve) {
			l.Debug("session_rejected", "kind", ve.Kind.String())
		}
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	user, err := s.Users.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		l.Error("session_error", "status", 503, "error", err)
		return nil, storeErr(err)
	}
	if !user.IsActive {
		return nil, ErrAccountNotFound
	}
	return user, nil
}

type UserPage struct {
	Items []models.User
	Total int64
	Page  int
	Size  int
}

func (s *AuthService) ListUsers(ctx context.Context, admin *models.User, page, size int) (*UserPage, error) {
	if admin == nil || !admin.IsAdmin {
		return nil, ErrForbidden
	}
	page, size = util.Normalize(page, size)
	from, limit := util.Calculate(page, size)

	users, total, err := s.Users.ListUsers(ctx, from, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return &UserPage{Items: users, Total: total, Page: page, Size: size}, nil
}

// SetActive enables or disables an account. Disabled accounts cannot log in
// and their outstanding tokens stop resolving.
func (s *AuthService) SetActive(ctx context.Context, admin *models.User, userID uint, active bool) (*models.User, error) {
	if admin == nil || !admin.IsAdmin {
		return nil, ErrForbidden
	}
	if admin.ID == userID && !active {
		return nil, validationf("admins cannot deactivate themselves")
	}

	if err := s.Users.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr(err)
	}
	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	logging.FromContext(ctx).Info("user_active_changed", "admin_id", admin.ID, "user_id", userID, "active", active)
	return user, nil
}
