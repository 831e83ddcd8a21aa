package repository

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// Sentinel errors shared by all repositories. The engine translates these
// into its typed workflow errors; callers above the engine never see them.
var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert hits a unique constraint.
	// The schema enforces the at-most-once links (one captain decision per
	// interrogation, one verdict per trial, one chief decision per captain
	// decision, one redemption code), so a concurrent duplicate attempt
	// surfaces here deterministically.
	ErrDuplicate = errors.New("duplicate")
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a postgres unique constraint hit.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
