// Package service orchestrates DNS record changes. Every call resolves the
// domain to its owning team and checks the principal's team role before the
// registrar is contacted. Records are never stored locally; reads always go
// to the registrar.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"teamdns/internal/dns/models"
	"teamdns/internal/platform/metrics"
	"teamdns/internal/registrar"
	teammodels "teamdns/internal/team/models"
	id "teamdns/pkg/domain"
	dErrors "teamdns/pkg/domain-errors"
	"teamdns/pkg/platform/audit"
	"teamdns/pkg/platform/sentinel"
	"teamdns/pkg/requestcontext"
)

// Store tracks domain ownership.
type Store interface {
	CreateDomain(ctx context.Context, d *models.Domain) error
	FindByName(ctx context.Context, name string) (*models.Domain, error)
	ListByTeams(ctx context.Context, teamIDs []id.TeamID) ([]*models.Domain, error)
	DeleteDomain(ctx context.Context, teamID id.TeamID, name string) (bool, error)
}

// Teams is the part of the team registry used for authorization.
type Teams interface {
	Authorize(ctx context.Context, principal id.UserID, teamID id.TeamID, requiredRole teammodels.Role) (bool, error)
	ListTeamsForUser(ctx context.Context, userID id.UserID) ([]*teammodels.Team, error)
}

type Service struct {
	store          Store
	teams          Teams
	registrar      registrar.Gateway
	logger         *slog.Logger
	auditPublisher audit.Emitter
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithAuditPublisher(publisher audit.Emitter) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, teams Teams, gateway registrar.Gateway, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("domain store is required")
	}
	if teams == nil {
		return nil, errors.New("team registry is required")
	}
	if gateway == nil {
		return nil, errors.New("registrar gateway is required")
	}
	s := &Service{store: store, teams: teams, registrar: gateway, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListDomains returns the domains owned by any team the principal belongs to.
func (s *Service) ListDomains(ctx context.Context, principal id.UserID) ([]*models.Domain, error) {
	teams, err := s.teams.ListTeamsForUser(ctx, principal)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return []*models.Domain{}, nil
	}
	teamIDs := make([]id.TeamID, 0, len(teams))
	for _, t := range teams {
		teamIDs = append(teamIDs, t.ID)
	}
	domains, err := s.store.ListByTeams(ctx, teamIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list domains")
	}
	return domains, nil
}

// GetDomain fetches registrar details and records concurrently.
func (s *Service) GetDomain(ctx context.Context, principal id.UserID, name string) (*models.DomainDetails, error) {
	domain, err := s.resolve(ctx, principal, name, "view")
	if err != nil {
		return nil, err
	}

	details := &models.DomainDetails{Domain: domain}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reg, err := s.registrar.GetDomain(gctx, domain.Name)
		if err != nil {
			return err
		}
		details.Registrar = reg
		return nil
	})
	g.Go(func() error {
		records, err := s.registrar.ListRecords(gctx, domain.Name)
		if err != nil {
			return err
		}
		details.Records = records
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, s.upstream(ctx, "get_domain", domain.Name, err)
	}
	return details, nil
}

func (s *Service) ListRecords(ctx context.Context, principal id.UserID, name string) ([]registrar.Record, error) {
	domain, err := s.resolve(ctx, principal, name, "view")
	if err != nil {
		return nil, err
	}
	records, err := s.registrar.ListRecords(ctx, domain.Name)
	if err != nil {
		return nil, s.upstream(ctx, "list_records", domain.Name, err)
	}
	return records, nil
}

func (s *Service) GetRecord(ctx context.Context, principal id.UserID, name string, recordID int64) (*registrar.Record, error) {
	domain, err := s.resolve(ctx, principal, name, "view")
	if err != nil {
		return nil, err
	}
	rec, err := s.registrar.GetRecord(ctx, domain.Name, recordID)
	if err != nil {
		if registrar.IsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return nil, s.upstream(ctx, "get_record", domain.Name, err)
	}
	return rec, nil
}

// CreateRecord applies the default TTL when none is given. A registrar
// failure leaves no trace locally.
func (s *Service) CreateRecord(ctx context.Context, principal id.UserID, name string, req *models.CreateRecordRequest) (*registrar.Record, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	domain, err := s.resolve(ctx, principal, name, "create records")
	if err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.registrar.CreateRecord(ctx, domain.Name, req.ToInput())
	if err != nil {
		s.incrementRecordMutation("create", "error")
		return nil, s.upstream(ctx, "create_record", domain.Name, err)
	}
	s.incrementRecordMutation("create", "success")
	s.logAudit(ctx, audit.EventRecordCreated,
		"user_id", principal.String(),
		"team_id", domain.TeamID.String(),
		"domain", domain.Name,
		"record_id", strconv.FormatInt(rec.ID, 10),
		"type", rec.Type,
	)
	return rec, nil
}

// UpdateRecord sends only the fields present in req.
func (s *Service) UpdateRecord(ctx context.Context, principal id.UserID, name string, recordID int64, req *models.UpdateRecordRequest) (*registrar.Record, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	domain, err := s.resolve(ctx, principal, name, "update records")
	if err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.registrar.UpdateRecord(ctx, domain.Name, recordID, req.ToPatch())
	if err != nil {
		if registrar.IsNotFound(err) {
			s.incrementRecordMutation("update", "not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		s.incrementRecordMutation("update", "error")
		return nil, s.upstream(ctx, "update_record", domain.Name, err)
	}
	s.incrementRecordMutation("update", "success")
	s.logAudit(ctx, audit.EventRecordUpdated,
		"user_id", principal.String(),
		"team_id", domain.TeamID.String(),
		"domain", domain.Name,
		"record_id", strconv.FormatInt(recordID, 10),
	)
	return rec, nil
}

// DeleteRecord treats a record the registrar no longer has as deleted.
func (s *Service) DeleteRecord(ctx context.Context, principal id.UserID, name string, recordID int64) error {
	domain, err := s.resolve(ctx, principal, name, "delete records")
	if err != nil {
		return err
	}
	err = s.registrar.DeleteRecord(ctx, domain.Name, recordID)
	switch {
	case err == nil:
		s.incrementRecordMutation("delete", "success")
	case registrar.IsNotFound(err):
		s.incrementRecordMutation("delete", "already_absent")
		return nil
	default:
		s.incrementRecordMutation("delete", "error")
		return s.upstream(ctx, "delete_record", domain.Name, err)
	}
	s.logAudit(ctx, audit.EventRecordDeleted,
		"user_id", principal.String(),
		"team_id", domain.TeamID.String(),
		"domain", domain.Name,
		"record_id", strconv.FormatInt(recordID, 10),
	)
	return nil
}

// AttachDomain places a registrar domain under teamID. Re-attaching to the
// same team returns the existing row.
func (s *Service) AttachDomain(ctx context.Context, principal id.UserID, teamID id.TeamID, req *models.AttachDomainRequest) (*models.Domain, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := s.requireTeam(ctx, principal, teamID, teammodels.RoleAdmin, "attach domains"); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.store.FindByName(ctx, req.Name)
	switch {
	case err == nil && existing.TeamID == teamID:
		return existing, nil
	case err == nil:
		return nil, dErrors.New(dErrors.CodeConflict, "domain is already owned by another team")
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up domain")
	}

	reg, err := s.registrar.GetDomain(ctx, req.Name)
	if err != nil {
		if registrar.IsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "domain not found in registrar account")
		}
		return nil, s.upstream(ctx, "get_domain", req.Name, err)
	}

	domain, err := models.NewDomain(id.NewDomainID(), req.Name, teamID, reg.Name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateDomain(ctx, domain); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "domain is already owned by another team")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "team not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach domain")
		}
	}
	s.logAudit(ctx, audit.EventDomainAttached,
		"user_id", principal.String(),
		"team_id", teamID.String(),
		"domain", domain.Name,
	)
	return domain, nil
}

// DetachDomain stops tracking name for teamID. Detaching a domain the team
// does not own succeeds without effect. Records at the registrar are kept.
func (s *Service) DetachDomain(ctx context.Context, principal id.UserID, teamID id.TeamID, name string) error {
	if err := s.requireTeam(ctx, principal, teamID, teammodels.RoleAdmin, "detach domains"); err != nil {
		return err
	}
	name = models.NormalizeDomainName(name)
	removed, err := s.store.DeleteDomain(ctx, teamID, name)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to detach domain")
	}
	if removed {
		s.logAudit(ctx, audit.EventDomainDetached,
			"user_id", principal.String(),
			"team_id", teamID.String(),
			"domain", name,
		)
	}
	return nil
}

func (s *Service) ListTeamDomains(ctx context.Context, principal id.UserID, teamID id.TeamID) ([]*models.Domain, error) {
	if err := s.requireTeam(ctx, principal, teamID, teammodels.RoleMember, "list domains"); err != nil {
		return nil, err
	}
	domains, err := s.store.ListByTeams(ctx, []id.TeamID{teamID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list domains")
	}
	return domains, nil
}

// resolve maps name to a tracked domain and requires the principal to be a
// member of its team. Nothing here touches the registrar.
func (s *Service) resolve(ctx context.Context, principal id.UserID, name, action string) (*models.Domain, error) {
	name = models.NormalizeDomainName(name)
	if err := models.ValidateDomainName(name); err != nil {
		return nil, err
	}
	domain, err := s.store.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "domain not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up domain")
	}
	ok, err := s.teams.Authorize(ctx, principal, domain.TeamID, teammodels.RoleMember)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.denied(ctx, principal, domain.TeamID, domain.Name, string(teammodels.RoleMember),
			"not a member of the team that owns this domain; cannot "+action)
	}
	return domain, nil
}

// requireTeam hides the team from non-members and rejects members below role.
func (s *Service) requireTeam(ctx context.Context, principal id.UserID, teamID id.TeamID, role teammodels.Role, action string) error {
	isMember, err := s.teams.Authorize(ctx, principal, teamID, teammodels.RoleMember)
	if err != nil {
		return err
	}
	if !isMember {
		return dErrors.New(dErrors.CodeNotFound, "team not found")
	}
	if role == teammodels.RoleMember {
		return nil
	}
	ok, err := s.teams.Authorize(ctx, principal, teamID, role)
	if err != nil {
		return err
	}
	if !ok {
		return s.denied(ctx, principal, teamID, "", string(role), "team "+string(role)+" role required to "+action)
	}
	return nil
}

func (s *Service) denied(ctx context.Context, principal id.UserID, teamID id.TeamID, domain, required, msg string) error {
	s.incrementAuthzDenied(required)
	s.logAudit(ctx, audit.EventAccessDenied,
		"user_id", principal.String(),
		"team_id", teamID.String(),
		"domain", domain,
		"decision", "deny",
		"reason", msg,
	)
	return dErrors.New(dErrors.CodeForbidden, msg)
}

// upstream converts a gateway failure into a domain error. The registrar
// message is logged, not returned.
func (s *Service) upstream(ctx context.Context, op, domain string, err error) error {
	s.logger.WarnContext(ctx, "registrar call failed",
		"op", op,
		"domain", domain,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	if registrar.IsTimeout(err) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "registrar did not respond in time")
	}
	return dErrors.Wrap(err, dErrors.CodeUpstream, "registrar request failed")
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	audit.LogAudit(ctx, s.logger, s.auditPublisher, event, attributes...)
}

func (s *Service) incrementRecordMutation(op, outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementRecordMutation(op, outcome)
	}
}

func (s *Service) incrementAuthzDenied(required string) {
	if s.metrics != nil {
		s.metrics.IncrementAuthzDenied(required)
	}
}
