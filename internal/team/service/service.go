// Package service is the API boundary for team management. It resolves
// the acting principal's rights against the registry before delegating.
//
// Access policy:
//   - read team and roster: member
//   - update team: admin (owner implied)
//   - delete team and every membership mutation: owner only
//
// Callers who are not members see "team not found" so the existence of
// other teams is not disclosed.
package service

import (
	"context"
	"log/slog"

	"teamdns/internal/platform/metrics"
	"teamdns/internal/team/models"
	id "teamdns/pkg/domain"
	dErrors "teamdns/pkg/domain-errors"
	"teamdns/pkg/platform/audit"
)

// Registry is the subset of the team registry the boundary relies on.
type Registry interface {
	CreateTeam(ctx context.Context, name string, ownerID id.UserID, description string) (*models.Team, error)
	GetTeam(ctx context.Context, teamID id.TeamID) (*models.Team, error)
	UpdateTeam(ctx context.Context, teamID id.TeamID, name, description *string) (*models.Team, error)
	DeleteTeam(ctx context.Context, teamID id.TeamID) error
	AddMember(ctx context.Context, teamID id.TeamID, userID id.UserID, role models.Role) (*models.Membership, error)
	RemoveMember(ctx context.Context, teamID id.TeamID, userID id.UserID) error
	UpdateMemberRole(ctx context.Context, teamID id.TeamID, userID id.UserID, role models.Role) (*models.Membership, error)
	Authorize(ctx context.Context, principal id.UserID, teamID id.TeamID, requiredRole models.Role) (bool, error)
	ListTeamsForUser(ctx context.Context, userID id.UserID) ([]*models.Team, error)
	ListMembers(ctx context.Context, teamID id.TeamID) ([]*models.Member, error)
}

type Service struct {
	registry       Registry
	logger         *slog.Logger
	auditPublisher audit.Emitter
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Emitter) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(registry Registry, opts ...Option) *Service {
	s := &Service{registry: registry}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateTeam(ctx context.Context, principal id.UserID, req *models.CreateTeamRequest) (*models.Team, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	team, err := s.registry.CreateTeam(ctx, req.Name, principal, req.Description)
	if err != nil {
		return nil, err
	}
	s.incrementTeamsCreated()
	s.logAudit(ctx, audit.EventTeamCreated,
		"user_id", principal.String(),
		"team_id", team.ID.String(),
	)
	return team, nil
}

func (s *Service) ListTeams(ctx context.Context, principal id.UserID) ([]*models.Team, error) {
	return s.registry.ListTeamsForUser(ctx, principal)
}

// GetTeam returns the team with its roster.
func (s *Service) GetTeam(ctx context.Context, principal id.UserID, teamID id.TeamID) (*models.TeamDetails, error) {
	team, err := s.require(ctx, principal, teamID, models.RoleMember)
	if err != nil {
		return nil, err
	}
	members, err := s.registry.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &models.TeamDetails{Team: team, Members: members}, nil
}

func (s *Service) UpdateTeam(ctx context.Context, principal id.UserID, teamID id.TeamID, req *models.UpdateTeamRequest) (*models.Team, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if _, err := s.require(ctx, principal, teamID, models.RoleAdmin); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	team, err := s.registry.UpdateTeam(ctx, teamID, req.Name, req.Description)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventTeamUpdated,
		"user_id", principal.String(),
		"team_id", teamID.String(),
	)
	return team, nil
}

func (s *Service) DeleteTeam(ctx context.Context, principal id.UserID, teamID id.TeamID) error {
	if _, err := s.requireOwner(ctx, principal, teamID, "delete the team"); err != nil {
		return err
	}
	if err := s.registry.DeleteTeam(ctx, teamID); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventTeamDeleted,
		"user_id", principal.String(),
		"team_id", teamID.String(),
	)
	return nil
}

func (s *Service) AddMember(ctx context.Context, principal id.UserID, teamID id.TeamID, userID id.UserID, role models.Role) (*models.Membership, error) {
	if _, err := s.requireOwner(ctx, principal, teamID, "add members"); err != nil {
		return nil, err
	}
	m, err := s.registry.AddMember(ctx, teamID, userID, role)
	if err != nil {
		return nil, err
	}
	s.incrementMembershipChange("add")
	s.logAudit(ctx, audit.EventMemberAdded,
		"user_id", principal.String(),
		"team_id", teamID.String(),
		"member_id", userID.String(),
		"role", string(role),
	)
	return m, nil
}

func (s *Service) UpdateMemberRole(ctx context.Context, principal id.UserID, teamID id.TeamID, userID id.UserID, role models.Role) (*models.Membership, error) {
	if _, err := s.requireOwner(ctx, principal, teamID, "change member roles"); err != nil {
		return nil, err
	}
	m, err := s.registry.UpdateMemberRole(ctx, teamID, userID, role)
	if err != nil {
		return nil, err
	}
	s.incrementMembershipChange("update_role")
	s.logAudit(ctx, audit.EventMemberRoleChanged,
		"user_id", principal.String(),
		"team_id", teamID.String(),
		"member_id", userID.String(),
		"role", string(role),
	)
	return m, nil
}

func (s *Service) RemoveMember(ctx context.Context, principal id.UserID, teamID id.TeamID, userID id.UserID) error {
	if _, err := s.requireOwner(ctx, principal, teamID, "remove members"); err != nil {
		return err
	}
	if err := s.registry.RemoveMember(ctx, teamID, userID); err != nil {
		return err
	}
	s.incrementMembershipChange("remove")
	s.logAudit(ctx, audit.EventMemberRemoved,
		"user_id", principal.String(),
		"team_id", teamID.String(),
		"member_id", userID.String(),
	)
	return nil
}

// require hides the team from non-members and rejects members whose role
// falls short.
func (s *Service) require(ctx context.Context, principal id.UserID, teamID id.TeamID, role models.Role) (*models.Team, error) {
	isMember, err := s.registry.Authorize(ctx, principal, teamID, models.RoleMember)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, dErrors.New(dErrors.CodeNotFound, "team not found")
	}
	team, err := s.registry.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if role == models.RoleMember {
		return team, nil
	}
	ok, err := s.registry.Authorize(ctx, principal, teamID, role)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.denied(ctx, principal, teamID, string(role), "insufficient team role")
	}
	return team, nil
}

func (s *Service) requireOwner(ctx context.Context, principal id.UserID, teamID id.TeamID, action string) (*models.Team, error) {
	team, err := s.require(ctx, principal, teamID, models.RoleMember)
	if err != nil {
		return nil, err
	}
	if !team.IsOwner(principal) {
		return nil, s.denied(ctx, principal, teamID, "owner", "only the team owner can "+action)
	}
	return team, nil
}

func (s *Service) denied(ctx context.Context, principal id.UserID, teamID id.TeamID, required, msg string) error {
	s.incrementAuthzDenied(required)
	s.logAudit(ctx, audit.EventAccessDenied,
		"user_id", principal.String(),
		"team_id", teamID.String(),
		"decision", "deny",
		"reason", msg,
	)
	return dErrors.New(dErrors.CodeForbidden, msg)
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	audit.LogAudit(ctx, s.logger, s.auditPublisher, event, attributes...)
}

func (s *Service) incrementTeamsCreated() {
	if s.metrics != nil {
		s.metrics.IncrementTeamsCreated()
	}
}

func (s *Service) incrementMembershipChange(op string) {
	if s.metrics != nil {
		s.metrics.IncrementMembershipChange(op)
	}
}

func (s *Service) incrementAuthzDenied(required string) {
	if s.metrics != nil {
		s.metrics.IncrementAuthzDenied(required)
	}
}
