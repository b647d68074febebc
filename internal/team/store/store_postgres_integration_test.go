//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"teamdns/internal/platform/postgres"
	"teamdns/internal/team/models"
	id "teamdns/pkg/domain"
	"teamdns/pkg/platform/sentinel"
	"teamdns/pkg/testutil/containers"
)

type PostgresTeamStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
}

func TestPostgresTeamStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresTeamStoreSuite))
}

func (s *PostgresTeamStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(context.Background(), s.pg.DB))
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresTeamStoreSuite) SetupTest() {
	_, err := s.pg.DB.Exec(`TRUNCATE users, teams, team_members, domains CASCADE`)
	s.Require().NoError(err)
}

func (s *PostgresTeamStoreSuite) insertUser(name string) id.UserID {
	userID := id.NewUserID()
	_, err := s.pg.DB.Exec(`
		INSERT INTO users (id, username, email, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, 'x', TRUE, now(), now())
	`, uuid.UUID(userID), name, name+"@example.com")
	s.Require().NoError(err)
	return userID
}

func (s *PostgresTeamStoreSuite) createTeam(owner id.UserID) *models.Team {
	now := time.Now().UTC().Truncate(time.Microsecond)
	team, err := models.NewTeam(id.NewTeamID(), "platform", "infra", owner, now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateTeam(context.Background(), team, &models.Membership{
		TeamID: team.ID, UserID: owner, Role: models.RoleAdmin, JoinedAt: now,
	}))
	return team
}

func (s *PostgresTeamStoreSuite) TestTeamLifecycle() {
	ctx := context.Background()
	owner := s.insertUser("owner")
	team := s.createTeam(owner)

	found, err := s.store.FindTeam(ctx, team.ID)
	s.Require().NoError(err)
	s.Equal("infra", found.Description)

	members, err := s.store.ListMembers(ctx, team.ID)
	s.Require().NoError(err)
	s.Require().Len(members, 1)
	s.Equal(models.RoleAdmin, members[0].Role)

	updated, err := s.store.UpdateTeam(ctx, team.ID, func(t *models.Team) error {
		t.Name = "infra"
		return nil
	})
	s.Require().NoError(err)
	s.Equal("infra", updated.Name)

	s.Require().NoError(s.store.DeleteTeam(ctx, team.ID))
	_, err = s.store.FindMembership(ctx, team.ID, owner)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresTeamStoreSuite) TestMembership() {
	ctx := context.Background()
	owner := s.insertUser("owner")
	member := s.insertUser("member")
	team := s.createTeam(owner)

	m := &models.Membership{TeamID: team.ID, UserID: member, Role: models.RoleMember, JoinedAt: time.Now()}
	s.Require().NoError(s.store.AddMember(ctx, m))
	s.ErrorIs(s.store.AddMember(ctx, m), sentinel.ErrConflict)

	teams, err := s.store.ListTeamsForUser(ctx, member)
	s.Require().NoError(err)
	s.Len(teams, 1)

	updated, err := s.store.UpdateMemberRole(ctx, team.ID, member, models.RoleAdmin)
	s.Require().NoError(err)
	s.Equal(models.RoleAdmin, updated.Role)

	removed, err := s.store.RemoveMember(ctx, team.ID, member)
	s.Require().NoError(err)
	s.True(removed)
	removed, err = s.store.RemoveMember(ctx, team.ID, member)
	s.Require().NoError(err)
	s.False(removed)
}

func (s *PostgresTeamStoreSuite) TestDeleteBlockedByDomains() {
	ctx := context.Background()
	team := s.createTeam(s.insertUser("owner"))
	_, err := s.pg.DB.Exec(`
		INSERT INTO domains (id, name, team_id, created_at, updated_at) VALUES ($1, 'example.com', $2, now(), now())
	`, uuid.New(), uuid.UUID(team.ID))
	s.Require().NoError(err)

	s.ErrorIs(s.store.DeleteTeam(ctx, team.ID), sentinel.ErrInvalidState)
}
