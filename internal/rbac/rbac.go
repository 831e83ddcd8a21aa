package rbac

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Role is an organization role name.
type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleCadet     Role = "cadet"
	RoleOfficer   Role = "officer"
	RoleDetective Role = "detective"
	RoleSergeant  Role = "sergeant"
	RoleCaptain   Role = "captain"
	RoleChief     Role = "chief"
	RoleJudge     Role = "judge"
)

// rank orders the police hierarchy. The judge sits outside the chain of
// command and carries a rank only so list ordering stays stable.
var rank = map[Role]int{
	RoleCitizen:   0,
	RoleCadet:     1,
	RoleOfficer:   2,
	RoleDetective: 3,
	RoleSergeant:  4,
	RoleCaptain:   5,
	RoleJudge:     5,
	RoleChief:     6,
}

// Rank returns the hierarchy level of a role, 0 for unknown roles.
func Rank(r Role) int {
	return rank[r]
}

// Police reports whether the role is part of the police chain of command.
func Police(r Role) bool {
	return r != RoleCitizen && r != RoleJudge && rank[r] > 0
}

// Directory resolves principals to their role sets. The engine owns no user
// administration; it only reads what the surrounding application stores.
type Directory interface {
	RolesOf(ctx context.Context, principal uuid.UUID) ([]Role, error)
	UsersByRole(ctx context.Context, role Role) ([]uuid.UUID, error)
}

// Authority answers permission questions for workflow transitions.
type Authority struct {
	directory Directory
}

// NewAuthority creates an authority backed by the given directory.
func NewAuthority(directory Directory) *Authority {
	return &Authority{directory: directory}
}

// HasAnyRole reports whether the principal holds at least one of the roles.
func (a *Authority) HasAnyRole(ctx context.Context, principal uuid.UUID, roles ...Role) (bool, error) {
	held, err := a.directory.RolesOf(ctx, principal)
	if err != nil {
		return false, errors.Wrap(err, "failed to resolve principal roles")
	}
	for _, h := range held {
		for _, want := range roles {
			if h == want {
				return true, nil
			}
		}
	}
	return false, nil
}

// HasPoliceRankAbove reports whether the principal holds a police role with a
// hierarchy level strictly greater than min.
func (a *Authority) HasPoliceRankAbove(ctx context.Context, principal uuid.UUID, min int) (bool, error) {
	held, err := a.directory.RolesOf(ctx, principal)
	if err != nil {
		return false, errors.Wrap(err, "failed to resolve principal roles")
	}
	for _, h := range held {
		if Police(h) && rank[h] > min {
			return true, nil
		}
	}
	return false, nil
}

// UsersByRole exposes role-pool resolution for notification fan-out.
func (a *Authority) UsersByRole(ctx context.Context, role Role) ([]uuid.UUID, error) {
	return a.directory.UsersByRole(ctx, role)
}
