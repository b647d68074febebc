package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"teamdns/internal/dns/models"
	"teamdns/internal/platform/postgres"
	id "teamdns/pkg/domain"
	"teamdns/pkg/platform/sentinel"
	"teamdns/pkg/platform/tx"
)

// Postgres stores ownership rows in the domains table. The unique name
// constraint arbitrates concurrent attaches.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const domainColumns = `id, name, COALESCE(registrar_ref, ''), team_id, created_at, updated_at`

func (s *Postgres) CreateDomain(ctx context.Context, d *models.Domain) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO domains (id, name, registrar_ref, team_id, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
	`, uuid.UUID(d.ID), d.Name, d.RegistrarRef, uuid.UUID(d.TeamID), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if _, ok := postgres.UniqueViolation(err); ok {
			return sentinel.ErrConflict
		}
		if _, ok := postgres.ForeignKeyViolation(err); ok {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert domain: %w", err)
	}
	return nil
}

func (s *Postgres) FindByName(ctx context.Context, name string) (*models.Domain, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT `+domainColumns+` FROM domains WHERE name = $1`, name)
	d, err := scanDomain(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find domain: %w", err)
	}
	return d, nil
}

func (s *Postgres) ListByTeams(ctx context.Context, teamIDs []id.TeamID) ([]*models.Domain, error) {
	ids := make([]string, 0, len(teamIDs))
	for _, t := range teamIDs {
		ids = append(ids, t.String())
	}
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT `+domainColumns+` FROM domains WHERE team_id = ANY($1::uuid[]) ORDER BY name
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Domain, 0)
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Postgres) DeleteDomain(ctx context.Context, teamID id.TeamID, name string) (bool, error) {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		DELETE FROM domains WHERE name = $1 AND team_id = $2
	`, name, uuid.UUID(teamID))
	if err != nil {
		return false, fmt.Errorf("delete domain: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *Postgres) CountByTeam(ctx context.Context, teamID id.TeamID) (int, error) {
	var n int
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM domains WHERE team_id = $1
	`, uuid.UUID(teamID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count domains: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDomain(row scanner) (*models.Domain, error) {
	var (
		d              models.Domain
		domainID, team uuid.UUID
	)
	if err := row.Scan(&domainID, &d.Name, &d.RegistrarRef, &team, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.ID = id.DomainID(domainID)
	d.TeamID = id.TeamID(team)
	return &d, nil
}
