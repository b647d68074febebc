package audit

import (
	"context"
	"time"

	id "teamdns/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// route and retain them differently.
type EventCategory string

const (
	// CategoryCompliance covers account lifecycle and team ownership changes.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers authentication failures, revocations and denied access.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine record and domain activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	UserID    id.UserID     `json:"user_id"`
	Subject   string        `json:"subject"`
	Action    string        `json:"action"`
	TeamID    string        `json:"team_id,omitempty"`
	Resource  string        `json:"resource,omitempty"`
	Decision  string        `json:"decision,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	ClientIP  string        `json:"client_ip,omitempty"`
	Device    string        `json:"device,omitempty"`
}

type AuditEvent string

const (
	// Identity events
	EventUserRegistered  AuditEvent = "user_registered"
	EventUserDeactivated AuditEvent = "user_deactivated"
	EventLoginSucceeded  AuditEvent = "login_succeeded"
	EventAuthFailed      AuditEvent = "auth_failed"
	EventTokenRevoked    AuditEvent = "token_revoked"

	// Team events
	EventTeamCreated       AuditEvent = "team_created"
	EventTeamUpdated       AuditEvent = "team_updated"
	EventTeamDeleted       AuditEvent = "team_deleted"
	EventMemberAdded       AuditEvent = "member_added"
	EventMemberRemoved     AuditEvent = "member_removed"
	EventMemberRoleChanged AuditEvent = "member_role_changed"
	EventAccessDenied      AuditEvent = "access_denied"

	// DNS events
	EventDomainAttached AuditEvent = "domain_attached"
	EventDomainDetached AuditEvent = "domain_detached"
	EventRecordCreated  AuditEvent = "record_created"
	EventRecordUpdated  AuditEvent = "record_updated"
	EventRecordDeleted  AuditEvent = "record_deleted"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserRegistered:    CategoryCompliance,
	EventUserDeactivated:   CategoryCompliance,
	EventTeamCreated:       CategoryCompliance,
	EventTeamDeleted:       CategoryCompliance,
	EventMemberAdded:       CategoryCompliance,
	EventMemberRemoved:     CategoryCompliance,
	EventMemberRoleChanged: CategoryCompliance,

	EventAuthFailed:   CategorySecurity,
	EventTokenRevoked: CategorySecurity,
	EventAccessDenied: CategorySecurity,

	EventLoginSucceeded: CategoryOperations,
	EventTeamUpdated:    CategoryOperations,
	EventDomainAttached: CategoryOperations,
	EventDomainDetached: CategoryOperations,
	EventRecordCreated:  CategoryOperations,
	EventRecordUpdated:  CategoryOperations,
	EventRecordDeleted:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is what services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
