// Package store tracks which team owns which registrar domain.
package store

import (
	"context"
	"sort"
	"sync"

	"teamdns/internal/dns/models"
	id "teamdns/pkg/domain"
	"teamdns/pkg/platform/sentinel"
)

// TeamGuard runs fn while the team is known to exist, excluding a
// concurrent team delete.
type TeamGuard interface {
	WithTeam(ctx context.Context, teamID id.TeamID, fn func() error) error
}

// InMemory indexes domains by their normalized name.
type InMemory struct {
	mu      sync.RWMutex
	domains map[string]*models.Domain
	teams   TeamGuard
}

type Option func(*InMemory)

// WithTeamGuard makes CreateDomain fail with ErrNotFound when the owning
// team is gone, the in-memory counterpart of the domains.team_id foreign key.
func WithTeamGuard(g TeamGuard) Option {
	return func(s *InMemory) { s.teams = g }
}

func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{domains: make(map[string]*models.Domain)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDomain fails with ErrConflict when the name is already tracked.
func (s *InMemory) CreateDomain(ctx context.Context, d *models.Domain) error {
	if s.teams == nil {
		return s.insert(d)
	}
	return s.teams.WithTeam(ctx, d.TeamID, func() error { return s.insert(d) })
}

func (s *InMemory) insert(d *models.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.domains[d.Name]; exists {
		return sentinel.ErrConflict
	}
	out := *d
	s.domains[d.Name] = &out
	return nil
}

func (s *InMemory) FindByName(_ context.Context, name string) (*models.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.domains[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (s *InMemory) ListByTeams(_ context.Context, teamIDs []id.TeamID) ([]*models.Domain, error) {
	wanted := make(map[id.TeamID]struct{}, len(teamIDs))
	for _, t := range teamIDs {
		wanted[t] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Domain, 0)
	for _, d := range s.domains {
		if _, ok := wanted[d.TeamID]; ok {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteDomain removes name when teamID owns it. It reports whether a row
// was removed.
func (s *InMemory) DeleteDomain(_ context.Context, teamID id.TeamID, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.domains[name]
	if !ok || d.TeamID != teamID {
		return false, nil
	}
	delete(s.domains, name)
	return true, nil
}

func (s *InMemory) CountByTeam(_ context.Context, teamID id.TeamID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, d := range s.domains {
		if d.TeamID == teamID {
			n++
		}
	}
	return n, nil
}
