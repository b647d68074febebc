package audit

import (
	"context"
	"log/slog"

	id "teamdns/pkg/domain"
	"teamdns/pkg/platform/attrs"
	"teamdns/pkg/requestcontext"
)

// LogAudit writes an audit line to the structured logger and forwards the
// event to the emitter when one is configured. Emission failures are logged,
// never returned: audit is best-effort for every event this service emits.
func LogAudit(ctx context.Context, logger *slog.Logger, emitter Emitter, event AuditEvent, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}
	args := append(attrList, "event", string(event), "log_type", "audit")
	if logger != nil {
		logger.InfoContext(ctx, string(event), args...)
	}
	if emitter == nil {
		return
	}

	userID, _ := id.ParseUserID(attrs.ExtractString(attrList, "user_id"))
	err := emitter.Emit(ctx, Event{
		Category:  event.Category(),
		Timestamp: requestcontext.Now(ctx),
		UserID:    userID,
		Subject:   attrs.ExtractFirst(attrList, "user_id", "username", "ip"),
		Action:    string(event),
		TeamID:    attrs.ExtractString(attrList, "team_id"),
		Resource:  attrs.ExtractFirst(attrList, "record_id", "domain", "member_id"),
		Decision:  attrs.ExtractString(attrList, "decision"),
		Reason:    attrs.ExtractString(attrList, "reason"),
		RequestID: requestID,
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    attrs.ExtractString(attrList, "device"),
	})
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
