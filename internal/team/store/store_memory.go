// Package store persists teams and memberships.
package store

import (
	"context"
	"sort"
	"sync"

	"teamdns/internal/team/models"
	id "teamdns/pkg/domain"
	"teamdns/pkg/platform/sentinel"
)

// InMemory keeps teams and memberships behind one lock so a team and its
// owner membership are never observed apart.
type InMemory struct {
	mu      sync.RWMutex
	teams   map[id.TeamID]*models.Team
	members map[id.TeamID]map[id.UserID]*models.Membership
}

func NewInMemory() *InMemory {
	return &InMemory{
		teams:   make(map[id.TeamID]*models.Team),
		members: make(map[id.TeamID]map[id.UserID]*models.Membership),
	}
}

// CreateTeam inserts the team and its owner membership together.
func (s *InMemory) CreateTeam(_ context.Context, team *models.Team, owner *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.teams[team.ID]; exists {
		return sentinel.ErrConflict
	}
	t := *team
	m := *owner
	s.teams[team.ID] = &t
	s.members[team.ID] = map[id.UserID]*models.Membership{owner.UserID: &m}
	return nil
}

func (s *InMemory) FindTeam(_ context.Context, teamID id.TeamID) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[teamID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *t
	return &out, nil
}

// UpdateTeam applies mutate under the write lock and stores the result.
func (s *InMemory) UpdateTeam(_ context.Context, teamID id.TeamID, mutate func(*models.Team) error) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := *t
	if err := mutate(&working); err != nil {
		return nil, err
	}
	// Ownership is fixed at creation.
	working.ID = t.ID
	working.OwnerID = t.OwnerID
	working.CreatedAt = t.CreatedAt
	s.teams[teamID] = &working
	out := working
	return &out, nil
}

// DeleteTeam removes the team and every membership of it.
func (s *InMemory) DeleteTeam(ctx context.Context, teamID id.TeamID) error {
	return s.DeleteTeamIf(ctx, teamID, nil)
}

// DeleteTeamIf runs check and the delete under the write lock. A non-nil
// error from check aborts the delete. WithTeam callers are excluded for the
// whole section.
func (s *InMemory) DeleteTeamIf(ctx context.Context, teamID id.TeamID, check func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[teamID]; !ok {
		return sentinel.ErrNotFound
	}
	if check != nil {
		if err := check(ctx); err != nil {
			return err
		}
	}
	delete(s.teams, teamID)
	delete(s.members, teamID)
	return nil
}

// WithTeam runs fn while teamID is guaranteed to exist. It returns
// ErrNotFound without calling fn when the team is gone.
func (s *InMemory) WithTeam(_ context.Context, teamID id.TeamID, fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.teams[teamID]; !ok {
		return sentinel.ErrNotFound
	}
	return fn()
}

// AddMember returns ErrNotFound for an unknown team and ErrConflict when the
// user is already a member.
func (s *InMemory) AddMember(_ context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster, ok := s.members[m.TeamID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if _, exists := roster[m.UserID]; exists {
		return sentinel.ErrConflict
	}
	stored := *m
	roster[m.UserID] = &stored
	return nil
}

// RemoveMember reports whether a membership was removed.
func (s *InMemory) RemoveMember(_ context.Context, teamID id.TeamID, userID id.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster, ok := s.members[teamID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if _, exists := roster[userID]; !exists {
		return false, nil
	}
	delete(roster, userID)
	return true, nil
}

func (s *InMemory) UpdateMemberRole(_ context.Context, teamID id.TeamID, userID id.UserID, role models.Role) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster, ok := s.members[teamID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	m, exists := roster[userID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	m.Role = role
	out := *m
	return &out, nil
}

func (s *InMemory) FindMembership(_ context.Context, teamID id.TeamID, userID id.UserID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[teamID][userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *m
	return &out, nil
}

// ListMembers returns members ordered by join time.
func (s *InMemory) ListMembers(_ context.Context, teamID id.TeamID) ([]*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roster, ok := s.members[teamID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := make([]*models.Membership, 0, len(roster))
	for _, m := range roster {
		c := *m
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID.String() < out[j].UserID.String()
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

// ListTeamsForUser returns teams with a membership for userID, by creation time.
func (s *InMemory) ListTeamsForUser(_ context.Context, userID id.UserID) ([]*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Team
	for teamID, roster := range s.members {
		if _, ok := roster[userID]; !ok {
			continue
		}
		t := *s.teams[teamID]
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
