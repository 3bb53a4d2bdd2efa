package auth

import (
	"context"
	"errors"

	"syncroom-service/internal/models"
	"syncroom-service/internal/repositories"
)

// ErrForbidden is returned for every denial that is not a plain
// non-membership, so callers cannot tell a missing resource from an
// insufficient role.
var ErrForbidden = errors.New("forbidden")

// ErrNotAMember surfaces distinctly: the caller has no standing in the
// room at all.
var ErrNotAMember = repositories.ErrNotAMember

// Gate answers "may this user perform this action in this room". Roles are
// looked up in the membership store on every call; there is no cache, so a
// demotion takes effect on the next check.
type Gate struct {
	members repositories.MembershipRepository
}

// NewGate constructs a Gate.
func NewGate(members repositories.MembershipRepository) *Gate {
	return &Gate{members: members}
}

func roleIn(role models.Role, allowed []models.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// RequireMember returns the caller's role, or ErrNotAMember.
func (g *Gate) RequireMember(ctx context.Context, roomID int, userID int) (models.Role, error) {
	return g.members.RoleOf(ctx, roomID, userID)
}

// RequireRole returns the caller's role when it is in the allow-set.
func (g *Gate) RequireRole(ctx context.Context, roomID int, userID int, allowed []models.Role) (models.Role, error) {
	role, err := g.members.RoleOf(ctx, roomID, userID)
	if err != nil {
		return "", err
	}
	if !roleIn(role, allowed) {
		return "", ErrForbidden
	}
	return role, nil
}

// AuthorizeDelete implements the author-OR-role rule for message and file
// deletion: authors may always retract their own content; otherwise admin
// or owner is required. ownerID is the content's author of record and may
// be nil (assistant messages have no author).
func (g *Gate) AuthorizeDelete(ctx context.Context, roomID int, actorID int, ownerID *int) (models.Role, error) {
	role, err := g.members.RoleOf(ctx, roomID, actorID)
	if err != nil {
		return "", err
	}
	if ownerID != nil && *ownerID == actorID {
		return role, nil
	}
	if !role.AtLeast(models.RoleAdmin) {
		return "", ErrForbidden
	}
	return role, nil
}

// AuthorizeKick checks removal of another member. Admins may kick members
// but never the owner; owners may kick anyone but themselves.
func (g *Gate) AuthorizeKick(ctx context.Context, roomID int, actorID int, targetID int) (models.Role, error) {
	if actorID == targetID {
		return "", ErrForbidden
	}
	role, err := g.RequireRole(ctx, roomID, actorID, []models.Role{models.RoleOwner, models.RoleAdmin})
	if err != nil {
		return "", err
	}
	targetRole, err := g.members.RoleOf(ctx, roomID, targetID)
	if err != nil {
		// The target's absence must look like any other denial.
		if errors.Is(err, ErrNotAMember) {
			return "", ErrForbidden
		}
		return "", err
	}
	if targetRole == models.RoleOwner && role != models.RoleOwner {
		return "", ErrForbidden
	}
	return role, nil
}

// AuthorizeRoleChange checks promote/demote: owner only, and the owner's
// own role cannot be changed.
func (g *Gate) AuthorizeRoleChange(ctx context.Context, roomID int, actorID int, targetID int) (models.Role, error) {
	role, err := g.RequireRole(ctx, roomID, actorID, []models.Role{models.RoleOwner})
	if err != nil {
		return "", err
	}
	if actorID == targetID {
		return "", ErrForbidden
	}
	return role, nil
}

// AuthorizeRoomDelete checks room teardown: owner only.
func (g *Gate) AuthorizeRoomDelete(ctx context.Context, roomID int, actorID int) (models.Role, error) {
	return g.RequireRole(ctx, roomID, actorID, []models.Role{models.RoleOwner})
}
