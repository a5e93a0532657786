package repo

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// DuplicateError reports which unique field an insert collided on.
type DuplicateError struct {
	Field string
	Err   error
}

func (e *DuplicateError) Error() string { return "duplicate " + e.Field }
func (e *DuplicateError) Unwrap() error { return e.Err }

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

var uniqueFields = map[string]string{
	"idx_users_username": "username",
	"idx_users_email":    "email",
	"users.username":     "username",
	"users.email":        "email",
}

// asDuplicate recognises unique violations from PostgreSQL (SQLSTATE 23505)
// and SQLite. It returns nil for any other error.
func asDuplicate(err error) *DuplicateError {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code != "23505" {
			return nil
		}
		if field, ok := uniqueFields[pqErr.Constraint]; ok {
			return &DuplicateError{Field: field, Err: err}
		}
		return &DuplicateError{Field: "unknown", Err: err}
	}

	msg := err.Error()
	const marker = "UNIQUE constraint failed: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return nil
	}
	col := msg[i+len(marker):]
	if j := strings.IndexAny(col, " ,("); j >= 0 {
		col = col[:j]
	}
	if field, ok := uniqueFields[col]; ok {
		return &DuplicateError{Field: field, Err: err}
	}
	return &DuplicateError{Field: "unknown", Err: err}
}
