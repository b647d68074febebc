package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "teamdns/pkg/domain-errors"
)

// Typed identifiers keep users, teams and domains from being swapped at
// call sites. The underlying value is always a non-nil UUID.
type (
	UserID   uuid.UUID
	TeamID   uuid.UUID
	DomainID uuid.UUID
)

func NewUserID() UserID     { return UserID(uuid.New()) }
func NewTeamID() TeamID     { return TeamID(uuid.New()) }
func NewDomainID() DomainID { return DomainID(uuid.New()) }

func (id UserID) String() string   { return uuid.UUID(id).String() }
func (id TeamID) String() string   { return uuid.UUID(id).String() }
func (id DomainID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id TeamID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id DomainID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id TeamID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id DomainID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TeamID) UnmarshalText(b []byte) error {
	parsed, err := ParseTeamID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseUserID validates a user identifier received at a trust boundary.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

// ParseTeamID validates a team identifier received at a trust boundary.
func ParseTeamID(s string) (TeamID, error) {
	u, err := parseUUID(s, "team_id")
	return TeamID(u), err
}

// ParseDomainID validates a domain identifier received at a trust boundary.
func ParseDomainID(s string) (DomainID, error) {
	u, err := parseUUID(s, "domain_id")
	return DomainID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	return u, nil
}
