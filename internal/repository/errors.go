// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values let the service layer tell a
// missing row from a uniqueness violation without inspecting driver
// errors itself.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when inserting or updating a user would
// duplicate an email address.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicate is returned when an insert violates a unique index other
// than the email index, e.g. a second application for the same job.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation recognizes duplicate-key errors from MySQL (1062) and
// from SQLite, which backs the repository tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
