package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"case-engine/internal/rbac"
)

// UserRepository resolves principals to role sets and role pools. It
// implements rbac.Directory; user administration itself lives outside the
// engine.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// RolesOf returns the roles held by a principal.
func (r *UserRepository) RolesOf(ctx context.Context, principal uuid.UUID) ([]rbac.Role, error) {
	var raw pq.StringArray

	err := r.db.GetContext(ctx, &raw, `SELECT roles FROM users WHERE id = $1`, principal)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user roles")
	}

	roles := make([]rbac.Role, 0, len(raw))
	for _, s := range raw {
		roles = append(roles, rbac.Role(s))
	}
	return roles, nil
}

// UsersByRole returns every principal holding the given role.
func (r *UserRepository) UsersByRole(ctx context.Context, role rbac.Role) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	query := `SELECT id FROM users WHERE $1 = ANY(roles) ORDER BY id`

	if err := r.db.SelectContext(ctx, &ids, query, string(role)); err != nil {
		return nil, errors.Wrap(err, "failed to list users by role")
	}
	return ids, nil
}
