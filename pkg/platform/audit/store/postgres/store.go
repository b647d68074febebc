package postgres

import (
	"context"
	"database/sql"
	"fmt"

	id "teamdns/pkg/domain"
	audit "teamdns/pkg/platform/audit"
	txcontext "teamdns/pkg/platform/tx"

	"github.com/google/uuid"
)

const insertEvent = `INSERT INTO audit_events (id, category, timestamp, user_id, subject, action,
	team_id, resource, decision, reason, request_id, client_ip, device)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// Store persists audit events in the audit_events table. Appends join an
// ambient transaction so audit rows commit with the business write.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	var userID *uuid.UUID
	if !event.UserID.IsNil() {
		u := uuid.UUID(event.UserID)
		userID = &u
	}

	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, insertEvent,
		uuid.New(),
		string(category),
		event.Timestamp,
		userID,
		event.Subject,
		event.Action,
		event.TeamID,
		event.Resource,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		event.Device,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectEvents = `SELECT category, timestamp, user_id, subject, action, team_id,
	resource, decision, reason, request_id, client_ip, device FROM audit_events`

// ListByUser returns the user's events oldest first.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return s.query(ctx, selectEvents+` WHERE user_id = $1 ORDER BY timestamp ASC`, uuid.UUID(userID))
}

// ListRecent returns up to limit events across all users, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.query(ctx, selectEvents+` ORDER BY timestamp DESC LIMIT $1`, limit)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := []audit.Event{}
	for rows.Next() {
		var (
			event    audit.Event
			category string
			uid      uuid.NullUUID
		)
		if err := rows.Scan(&category, &event.Timestamp, &uid, &event.Subject, &event.Action,
			&event.TeamID, &event.Resource, &event.Decision, &event.Reason,
			&event.RequestID, &event.ClientIP, &event.Device); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		if uid.Valid {
			event.UserID = id.UserID(uid.UUID)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
