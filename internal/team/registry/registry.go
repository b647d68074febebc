// Package registry is the source of truth for teams, memberships and roles.
// It never sees tokens: callers pass the principal already resolved and
// decide who may invoke each mutation.
package registry

import (
	"context"
	"errors"

	authmodels "teamdns/internal/auth/models"
	"teamdns/internal/team/models"
	id "teamdns/pkg/domain"
	dErrors "teamdns/pkg/domain-errors"
	"teamdns/pkg/platform/sentinel"
	"teamdns/pkg/requestcontext"
)

type Store interface {
	CreateTeam(ctx context.Context, team *models.Team, owner *models.Membership) error
	FindTeam(ctx context.Context, teamID id.TeamID) (*models.Team, error)
	UpdateTeam(ctx context.Context, teamID id.TeamID, mutate func(*models.Team) error) (*models.Team, error)
	DeleteTeam(ctx context.Context, teamID id.TeamID) error
	AddMember(ctx context.Context, m *models.Membership) error
	RemoveMember(ctx context.Context, teamID id.TeamID, userID id.UserID) (bool, error)
	UpdateMemberRole(ctx context.Context, teamID id.TeamID, userID id.UserID, role models.Role) (*models.Membership, error)
	FindMembership(ctx context.Context, teamID id.TeamID, userID id.UserID) (*models.Membership, error)
	ListMembers(ctx context.Context, teamID id.TeamID) ([]*models.Membership, error)
	ListTeamsForUser(ctx context.Context, userID id.UserID) ([]*models.Team, error)
}

// UserDirectory resolves users for membership checks and roster enrichment.
type UserDirectory interface {
	GetUser(ctx context.Context, userID id.UserID) (*authmodels.User, error)
}

// guardedDeleter is implemented by stores that can count domains and delete
// the team without a concurrent attach slipping in between.
type guardedDeleter interface {
	DeleteTeamIf(ctx context.Context, teamID id.TeamID, check func(context.Context) error) error
}

// DomainCounter reports how many domains a team owns.
type DomainCounter interface {
	CountByTeam(ctx context.Context, teamID id.TeamID) (int, error)
}

type Registry struct {
	store   Store
	users   UserDirectory
	domains DomainCounter
}

type Option func(*Registry)

// WithDomainCounter makes DeleteTeam refuse teams that still own domains.
func WithDomainCounter(c DomainCounter) Option {
	return func(r *Registry) {
		r.domains = c
	}
}

func New(store Store, users UserDirectory, opts ...Option) *Registry {
	r := &Registry{store: store, users: users}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateTeam stores the team and the owner's admin membership atomically.
func (r *Registry) CreateTeam(ctx context.Context, name string, ownerID id.UserID, description string) (*models.Team, error) {
	now := requestcontext.Now(ctx)
	team, err := models.NewTeam(id.NewTeamID(), name, description, ownerID, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			var de *dErrors.Error
			errors.As(err, &de)
			return nil, dErrors.New(dErrors.CodeValidation, de.Message)
		}
		return nil, err
	}
	owner := &models.Membership{TeamID: team.ID, UserID: ownerID, Role: models.RoleAdmin, JoinedAt: now}
	if err := r.store.CreateTeam(ctx, team, owner); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create team")
	}
	return team, nil
}

func (r *Registry) GetTeam(ctx context.Context, teamID id.TeamID) (*models.Team, error) {
	team, err := r.store.FindTeam(ctx, teamID)
	if err != nil {
		return nil, wrapTeamErr(err)
	}
	return team, nil
}

// UpdateTeam applies a sparse patch. Owner is never changed.
func (r *Registry) UpdateTeam(ctx context.Context, teamID id.TeamID, name, description *string) (*models.Team, error) {
	now := requestcontext.Now(ctx)
	team, err := r.store.UpdateTeam(ctx, teamID, func(t *models.Team) error {
		if err := t.ApplyUpdate(name, description, now); err != nil {
			var de *dErrors.Error
			errors.As(err, &de)
			return dErrors.New(dErrors.CodeValidation, de.Message)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTeamErr(err)
	}
	return team, nil
}

// DeleteTeam removes the team and its memberships. A team that still owns
// domains is refused with a conflict.
func (r *Registry) DeleteTeam(ctx context.Context, teamID id.TeamID) error {
	noDomains := func(ctx context.Context) error {
		if r.domains == nil {
			return nil
		}
		n, err := r.domains.CountByTeam(ctx, teamID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count team domains")
		}
		if n > 0 {
			return dErrors.New(dErrors.CodeConflict, "team still owns domains")
		}
		return nil
	}

	var err error
	if guarded, ok := r.store.(guardedDeleter); ok {
		err = guarded.DeleteTeamIf(ctx, teamID, noDomains)
	} else if err = noDomains(ctx); err == nil {
		err = r.store.DeleteTeam(ctx, teamID)
	}
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.New(dErrors.CodeConflict, "team still owns domains")
		}
		return wrapTeamErr(err)
	}
	return nil
}

// AddMember fails with not found for an unknown team or user and with a
// conflict when the user is already a member.
func (r *Registry) AddMember(ctx context.Context, teamID id.TeamID, userID id.UserID, role models.Role) (*models.Membership, error) {
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be admin or member")
	}
	if _, err := r.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	if _, err := r.users.GetUser(ctx, userID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	m := &models.Membership{TeamID: teamID, UserID: userID, Role: role, JoinedAt: requestcontext.Now(ctx)}
	if err := r.store.AddMember(ctx, m); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "user is already a member")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "team not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add member")
		}
	}
	return m, nil
}

// RemoveMember succeeds when the user is not a member. The owner cannot be
// removed.
func (r *Registry) RemoveMember(ctx context.Context, teamID id.TeamID, userID id.UserID) error {
	team, err := r.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.IsOwner(userID) {
		return dErrors.New(dErrors.CodeConflict, "team owner cannot be removed")
	}
	if _, err := r.store.RemoveMember(ctx, teamID, userID); err != nil {
		return wrapTeamErr(err)
	}
	return nil
}

// UpdateMemberRole fails with not found when the user is not a member. The
// owner's membership stays admin.
func (r *Registry) UpdateMemberRole(ctx context.Context, teamID id.TeamID, userID id.UserID, role models.Role) (*models.Membership, error) {
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be admin or member")
	}
	team, err := r.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.IsOwner(userID) && role != models.RoleAdmin {
		return nil, dErrors.New(dErrors.CodeConflict, "team owner must remain admin")
	}
	m, err := r.store.UpdateMemberRole(ctx, teamID, userID, role)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user is not a member of this team")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update member role")
	}
	return m, nil
}

// Authorize reports whether principal may act on teamID with requiredRole.
// The owner satisfies every role regardless of the stored membership.
// Unknown teams and non-members are simply not authorized.
func (r *Registry) Authorize(ctx context.Context, principal id.UserID, teamID id.TeamID, requiredRole models.Role) (bool, error) {
	team, err := r.store.FindTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load team")
	}
	if team.IsOwner(principal) {
		return true, nil
	}
	m, err := r.store.FindMembership(ctx, teamID, principal)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load membership")
	}
	return m.Role.Satisfies(requiredRole), nil
}

func (r *Registry) ListTeamsForUser(ctx context.Context, userID id.UserID) ([]*models.Team, error) {
	teams, err := r.store.ListTeamsForUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list teams")
	}
	return teams, nil
}

// ListMembers returns the roster with usernames and emails filled in.
func (r *Registry) ListMembers(ctx context.Context, teamID id.TeamID) ([]*models.Member, error) {
	memberships, err := r.store.ListMembers(ctx, teamID)
	if err != nil {
		return nil, wrapTeamErr(err)
	}
	out := make([]*models.Member, 0, len(memberships))
	for _, m := range memberships {
		member := &models.Member{Membership: *m}
		if u, err := r.users.GetUser(ctx, m.UserID); err == nil {
			member.Username = u.Username
			member.Email = u.Email
		}
		out = append(out, member)
	}
	return out, nil
}

func wrapTeamErr(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "team not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "team store failure")
}
