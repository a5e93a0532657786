// Package tokens issues and validates the HS256 bearer tokens that bind a
// request to a username.
package tokens

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrMissingSecret = errors.New("token signing secret is empty")

type Kind int

const (
	Malformed Kind = iota + 1
	SignatureMismatch
	Expired
)

func (k Kind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case SignatureMismatch:
		return "signature_mismatch"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

type ValidationError struct {
	Kind Kind
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return "token " + e.Kind.String()
	}
	return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Retryable is true when logging in again would produce a usable token.
func (e *ValidationError) Retryable() bool { return e.Kind == Expired }

type Option func(*Issuer)

// WithClock replaces time.Now for both issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

type Issuer struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret []byte, defaultTTL time.Duration, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}
	i := &Issuer{
		secret:     append([]byte(nil), secret...),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// Issued is a minted token together with its expiry.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// Issue signs a token for subject. A non-positive ttl uses the default TTL.
func (i *Issuer) Issue(subject string, ttl time.Duration) (Issued, error) {
	if subject == "" {
		return Issued{}, errors.New("token subject is empty")
	}
	if ttl <= 0 {
		ttl = i.defaultTTL
	}
	now := i.now().UTC()
	exp := now.Add(ttl)

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}
	return Issued{Token: signed, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// Validate returns the token's subject or a *ValidationError. The signature
// is checked before expiry.
func (i *Issuer) Validate(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		ve := classify(err)
		if ve.Kind == Malformed && nonCanonicalSignature(token) {
			ve.Kind = SignatureMismatch
		}
		return "", ve
	}
	if claims.Subject == "" {
		return "", &ValidationError{Kind: Malformed, Err: errors.New("missing subject")}
	}
	return claims.Subject, nil
}

func classify(err error) *ValidationError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &ValidationError{Kind: Malformed, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &ValidationError{Kind: SignatureMismatch, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &ValidationError{Kind: Expired, Err: err}
	default:
		return &ValidationError{Kind: Malformed, Err: err}
	}
}

var (
	lenientSegments = jwt.NewParser()
	strictSegments  = jwt.NewParser(jwt.WithStrictDecoding())
)

// nonCanonicalSignature reports whether header and claims decode but the
// signature segment does not decode strictly, as when its last character was
// altered.
func nonCanonicalSignature(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, seg := range parts[:2] {
		if _, err := lenientSegments.DecodeSegment(seg); err != nil {
			return false
		}
	}
	_, err := strictSegments.DecodeSegment(parts[2])
	return err != nil
}
