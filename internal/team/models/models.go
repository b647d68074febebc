package models

import (
	"strings"
	"time"

	id "teamdns/pkg/domain"
	dErrors "teamdns/pkg/domain-errors"
)

// Role is a membership role. Admin carries every member capability.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Satisfies reports whether r grants at least the capabilities of required.
func (r Role) Satisfies(required Role) bool {
	switch required {
	case RoleMember:
		return r == RoleMember || r == RoleAdmin
	case RoleAdmin:
		return r == RoleAdmin
	default:
		return false
	}
}

// ParseRole accepts "admin" or "member" case-insensitively. Empty means member.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RoleMember, nil
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "role must be admin or member")
	}
	return r, nil
}

const (
	maxTeamNameLength    = 100
	maxDescriptionLength = 500
)

// Team owns domains. OwnerID never changes after creation.
type Team struct {
	ID          id.TeamID
	Name        string
	Description string
	OwnerID     id.UserID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Team) IsOwner(userID id.UserID) bool {
	return t.OwnerID == userID
}

// NewTeam validates a team before it is stored.
func NewTeam(teamID id.TeamID, name, description string, ownerID id.UserID, now time.Time) (*Team, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if len(description) > maxDescriptionLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "team description must be 500 characters or less")
	}
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "team owner is required")
	}
	return &Team{
		ID:          teamID,
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func validateName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "team name cannot be empty")
	}
	if len(name) > maxTeamNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "team name must be 100 characters or less")
	}
	return nil
}

// ApplyUpdate sets the present fields. Owner is not updatable.
func (t *Team) ApplyUpdate(name, description *string, now time.Time) error {
	if name != nil {
		if err := validateName(*name); err != nil {
			return err
		}
		t.Name = *name
	}
	if description != nil {
		if len(*description) > maxDescriptionLength {
			return dErrors.New(dErrors.CodeInvariantViolation, "team description must be 500 characters or less")
		}
		t.Description = *description
	}
	t.UpdatedAt = now
	return nil
}

// Membership binds a user to a team with a role. (TeamID, UserID) is unique.
type Membership struct {
	TeamID   id.TeamID
	UserID   id.UserID
	Role     Role
	JoinedAt time.Time
}

// TeamDetails is a team with its member roster.
type TeamDetails struct {
	Team    *Team
	Members []*Member
}

// Member is a membership enriched with the user's public identity.
type Member struct {
	Membership
	Username string
	Email    string
}

type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (r *CreateTeamRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *CreateTeamRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

// UpdateTeamRequest is a sparse patch: nil fields are left unchanged.
type UpdateTeamRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (r *UpdateTeamRequest) Normalize() {
	if r == nil {
		return
	}
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
	if r.Description != nil {
		trimmed := strings.TrimSpace(*r.Description)
		r.Description = &trimmed
	}
}

func (r *UpdateTeamRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Name == nil && r.Description == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one of name or description is required")
	}
	if r.Name != nil && *r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	return nil
}

// MemberRoleRequest carries the role for add and update member calls.
type MemberRoleRequest struct {
	Role string `json:"role,omitempty"`
}

type TeamResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MemberResponse struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username,omitempty"`
	Email    string    `json:"email,omitempty"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type TeamDetailResponse struct {
	TeamResponse
	Members     []MemberResponse `json:"members"`
	MemberCount int              `json:"member_count"`
}

func ToTeamResponse(t *Team) TeamResponse {
	return TeamResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		OwnerID:     t.OwnerID.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func ToMemberResponse(m *Member) MemberResponse {
	return MemberResponse{
		UserID:   m.UserID.String(),
		Username: m.Username,
		Email:    m.Email,
		Role:     m.Role,
		JoinedAt: m.JoinedAt,
	}
}

func ToTeamDetailResponse(d *TeamDetails) TeamDetailResponse {
	members := make([]MemberResponse, 0, len(d.Members))
	for _, m := range d.Members {
		members = append(members, ToMemberResponse(m))
	}
	return TeamDetailResponse{
		TeamResponse: ToTeamResponse(d.Team),
		Members:      members,
		MemberCount:  len(members),
	}
}
