package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"teamdns/internal/platform/postgres"
	"teamdns/internal/team/models"
	id "teamdns/pkg/domain"
	"teamdns/pkg/platform/sentinel"
	"teamdns/pkg/platform/tx"
)

// Postgres stores teams in the teams and team_members tables. Memberships
// cascade with their team; domains referencing a team block its deletion.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const teamColumns = `id, name, COALESCE(description, ''), owner_id, created_at, updated_at`

func (s *Postgres) CreateTeam(ctx context.Context, team *models.Team, owner *models.Membership) error {
	return tx.RunInTx(ctx, s.db, func(ctx context.Context) error {
		exec := tx.Exec(ctx, s.db)
		_, err := exec.ExecContext(ctx, `
			INSERT INTO teams (id, name, description, owner_id, created_at, updated_at)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		`, uuid.UUID(team.ID), team.Name, team.Description, uuid.UUID(team.OwnerID), team.CreatedAt, team.UpdatedAt)
		if err != nil {
			if _, ok := postgres.UniqueViolation(err); ok {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert team: %w", err)
		}
		_, err = exec.ExecContext(ctx, `
			INSERT INTO team_members (team_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)
		`, uuid.UUID(owner.TeamID), uuid.UUID(owner.UserID), string(owner.Role), owner.JoinedAt)
		if err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
}

func (s *Postgres) FindTeam(ctx context.Context, teamID id.TeamID) (*models.Team, error) {
	return s.findTeam(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, teamID)
}

func (s *Postgres) UpdateTeam(ctx context.Context, teamID id.TeamID, mutate func(*models.Team) error) (*models.Team, error) {
	var out *models.Team
	err := tx.RunInTx(ctx, s.db, func(ctx context.Context) error {
		t, err := s.findTeam(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, teamID)
		if err != nil {
			return err
		}
		if err := mutate(t); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, s.db).ExecContext(ctx, `
			UPDATE teams SET name = $2, description = NULLIF($3, ''), updated_at = $4 WHERE id = $1
		`, uuid.UUID(teamID), t.Name, t.Description, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update team: %w", err)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTeam returns ErrInvalidState while domains still reference the team.
func (s *Postgres) DeleteTeam(ctx context.Context, teamID id.TeamID) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, uuid.UUID(teamID))
	if err != nil {
		if _, ok := postgres.ForeignKeyViolation(err); ok {
			return sentinel.ErrInvalidState
		}
		return fmt.Errorf("delete team: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) AddMember(ctx context.Context, m *models.Membership) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO team_members (team_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)
	`, uuid.UUID(m.TeamID), uuid.UUID(m.UserID), string(m.Role), m.JoinedAt)
	if err == nil {
		return nil
	}
	if _, ok := postgres.UniqueViolation(err); ok {
		return sentinel.ErrConflict
	}
	if _, ok := postgres.ForeignKeyViolation(err); ok {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("insert membership: %w", err)
}

func (s *Postgres) RemoveMember(ctx context.Context, teamID id.TeamID, userID id.UserID) (bool, error) {
	var removed bool
	err := tx.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.FindTeam(ctx, teamID); err != nil {
			return err
		}
		res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
			DELETE FROM team_members WHERE team_id = $1 AND user_id = $2
		`, uuid.UUID(teamID), uuid.UUID(userID))
		if err != nil {
			return fmt.Errorf("delete membership: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete membership: %w", err)
		}
		removed = n > 0
		return nil
	})
	return removed, err
}

func (s *Postgres) UpdateMemberRole(ctx context.Context, teamID id.TeamID, userID id.UserID, role models.Role) (*models.Membership, error) {
	m := &models.Membership{TeamID: teamID, UserID: userID, Role: role}
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		UPDATE team_members SET role = $3 WHERE team_id = $1 AND user_id = $2 RETURNING joined_at
	`, uuid.UUID(teamID), uuid.UUID(userID), string(role)).Scan(&m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update membership: %w", err)
	}
	return m, nil
}

func (s *Postgres) FindMembership(ctx context.Context, teamID id.TeamID, userID id.UserID) (*models.Membership, error) {
	m := &models.Membership{TeamID: teamID, UserID: userID}
	var role string
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT role, joined_at FROM team_members WHERE team_id = $1 AND user_id = $2
	`, uuid.UUID(teamID), uuid.UUID(userID)).Scan(&role, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find membership: %w", err)
	}
	m.Role = models.Role(role)
	return m, nil
}

func (s *Postgres) ListMembers(ctx context.Context, teamID id.TeamID) ([]*models.Membership, error) {
	if _, err := s.FindTeam(ctx, teamID); err != nil {
		return nil, err
	}
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT user_id, role, joined_at FROM team_members WHERE team_id = $1 ORDER BY joined_at, user_id
	`, uuid.UUID(teamID))
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []*models.Membership
	for rows.Next() {
		var (
			uid  uuid.UUID
			role string
			m    = &models.Membership{TeamID: teamID}
		)
		if err := rows.Scan(&uid, &role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.UserID = id.UserID(uid)
		m.Role = models.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Postgres) ListTeamsForUser(ctx context.Context, userID id.UserID) ([]*models.Team, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT t.id, t.name, COALESCE(t.description, ''), t.owner_id, t.created_at, t.updated_at
		FROM teams t JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.created_at
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var out []*models.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTeam(row scanner) (*models.Team, error) {
	var (
		t            models.Team
		tid, ownerID uuid.UUID
	)
	if err := row.Scan(&tid, &t.Name, &t.Description, &ownerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.ID = id.TeamID(tid)
	t.OwnerID = id.UserID(ownerID)
	return &t, nil
}

func (s *Postgres) findTeam(ctx context.Context, query string, teamID id.TeamID) (*models.Team, error) {
	t, err := scanTeam(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(teamID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find team: %w", err)
	}
	return t, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
