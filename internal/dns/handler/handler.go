package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"teamdns/internal/dns/models"
	"teamdns/internal/registrar"
	id "teamdns/pkg/domain"
	dErrors "teamdns/pkg/domain-errors"
	"teamdns/pkg/platform/httputil"
	"teamdns/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the DNS orchestrator as seen from HTTP.
type Service interface {
	ListDomains(ctx context.Context, principal id.UserID) ([]*models.Domain, error)
	GetDomain(ctx context.Context, principal id.UserID, name string) (*models.DomainDetails, error)
	ListRecords(ctx context.Context, principal id.UserID, name string) ([]registrar.Record, error)
	GetRecord(ctx context.Context, principal id.UserID, name string, recordID int64) (*registrar.Record, error)
	CreateRecord(ctx context.Context, principal id.UserID, name string, req *models.CreateRecordRequest) (*registrar.Record, error)
	UpdateRecord(ctx context.Context, principal id.UserID, name string, recordID int64, req *models.UpdateRecordRequest) (*registrar.Record, error)
	DeleteRecord(ctx context.Context, principal id.UserID, name string, recordID int64) error
	AttachDomain(ctx context.Context, principal id.UserID, teamID id.TeamID, req *models.AttachDomainRequest) (*models.Domain, error)
	DetachDomain(ctx context.Context, principal id.UserID, teamID id.TeamID, name string) error
	ListTeamDomains(ctx context.Context, principal id.UserID, teamID id.TeamID) ([]*models.Domain, error)
}

type Handler struct {
	dns    Service
	logger *slog.Logger
}

func New(dns Service, logger *slog.Logger) *Handler {
	return &Handler{dns: dns, logger: logger}
}

// Register mounts domain and record routes. RequireAuth must run upstream.
func (h *Handler) Register(r chi.Router) {
	r.Get("/domains", h.HandleListDomains)
	r.Get("/domains/{name}", h.HandleGetDomain)
	r.Get("/domains/{name}/records", h.HandleListRecords)
	r.Post("/domains/{name}/records", h.HandleCreateRecord)
	r.Get("/domains/{name}/records/{recordID}", h.HandleGetRecord)
	r.Put("/domains/{name}/records/{recordID}", h.HandleUpdateRecord)
	r.Delete("/domains/{name}/records/{recordID}", h.HandleDeleteRecord)

	r.Get("/teams/{teamID}/domains", h.HandleListTeamDomains)
	r.Post("/teams/{teamID}/domains", h.HandleAttachDomain)
	r.Delete("/teams/{teamID}/domains/{name}", h.HandleDetachDomain)
}

func (h *Handler) HandleListDomains(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domains, err := h.dns.ListDomains(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to list domains", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDomainResponses(domains))
}

func (h *Handler) HandleGetDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	details, err := h.dns.GetDomain(ctx, requestcontext.UserID(ctx), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(ctx, w, "failed to load domain", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToDomainDetailResponse(details))
}

func (h *Handler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.dns.ListRecords(ctx, requestcontext.UserID(ctx), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(ctx, w, "failed to list records", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToRecordResponses(records))
}

func (h *Handler) HandleCreateRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateRecordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.dns.CreateRecord(ctx, requestcontext.UserID(ctx), chi.URLParam(r, "name"), &req)
	if err != nil {
		h.fail(ctx, w, "failed to create record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToRecordResponse(rec))
}

func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	rec, err := h.dns.GetRecord(ctx, requestcontext.UserID(ctx), chi.URLParam(r, "name"), recordID)
	if err != nil {
		h.fail(ctx, w, "failed to load record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToRecordResponse(rec))
}

func (h *Handler) HandleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	var req models.UpdateRecordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.dns.UpdateRecord(ctx, requestcontext.UserID(ctx), chi.URLParam(r, "name"), recordID, &req)
	if err != nil {
		h.fail(ctx, w, "failed to update record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToRecordResponse(rec))
}

func (h *Handler) HandleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	if err := h.dns.DeleteRecord(ctx, requestcontext.UserID(ctx), chi.URLParam(r, "name"), recordID); err != nil {
		h.fail(ctx, w, "failed to delete record", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handler) HandleListTeamDomains(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID, ok := teamIDParam(w, r)
	if !ok {
		return
	}
	domains, err := h.dns.ListTeamDomains(ctx, requestcontext.UserID(ctx), teamID)
	if err != nil {
		h.fail(ctx, w, "failed to list team domains", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDomainResponses(domains))
}

func (h *Handler) HandleAttachDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID, ok := teamIDParam(w, r)
	if !ok {
		return
	}
	var req models.AttachDomainRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	domain, err := h.dns.AttachDomain(ctx, requestcontext.UserID(ctx), teamID, &req)
	if err != nil {
		h.fail(ctx, w, "failed to attach domain", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToDomainResponse(domain))
}

func (h *Handler) HandleDetachDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID, ok := teamIDParam(w, r)
	if !ok {
		return
	}
	if err := h.dns.DetachDomain(ctx, requestcontext.UserID(ctx), teamID, chi.URLParam(r, "name")); err != nil {
		h.fail(ctx, w, "failed to detach domain", err)
		return
	}
	httputil.WriteNoContent(w)
}

func toDomainResponses(domains []*models.Domain) []models.DomainResponse {
	out := make([]models.DomainResponse, 0, len(domains))
	for _, d := range domains {
		out = append(out, models.ToDomainResponse(d))
	}
	return out
}

func teamIDParam(w http.ResponseWriter, r *http.Request) (id.TeamID, bool) {
	teamID, err := id.ParseTeamID(chi.URLParam(r, "teamID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.TeamID{}, false
	}
	return teamID, true
}

func recordIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	recordID, err := strconv.ParseInt(chi.URLParam(r, "recordID"), 10, 64)
	if err != nil || recordID <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "record id must be a positive integer"))
		return 0, false
	}
	return recordID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelWarn
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, err)
}
