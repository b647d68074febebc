//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	platformpg "teamdns/internal/platform/postgres"
	id "teamdns/pkg/domain"
	audit "teamdns/pkg/platform/audit"
	"teamdns/pkg/testutil/containers"
)

type AuditPostgresSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
}

func TestAuditPostgresSuite(t *testing.T) {
	suite.Run(t, new(AuditPostgresSuite))
}

func (s *AuditPostgresSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(platformpg.Migrate(context.Background(), s.pg.DB))
	s.store = New(s.pg.DB)
}

func (s *AuditPostgresSuite) TestAppendAndList() {
	ctx := context.Background()
	actor := id.NewUserID()
	at := time.Now().UTC().Truncate(time.Millisecond)

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		UserID: actor, Action: string(audit.EventRecordCreated), Timestamp: at,
		Resource: "rec-1", TeamID: "team-a",
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Action: string(audit.EventAuthFailed), Timestamp: at.Add(time.Second), Subject: "10.0.0.1",
	}))

	mine, err := s.store.ListByUser(ctx, actor)
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(audit.CategoryOperations, mine[0].Category)
	s.Equal("rec-1", mine[0].Resource)

	recent, err := s.store.ListRecent(ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.Equal(string(audit.EventAuthFailed), recent[0].Action)
	s.True(recent[0].UserID.IsNil())
}
