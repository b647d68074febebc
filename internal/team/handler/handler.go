package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"teamdns/internal/team/models"
	id "teamdns/pkg/domain"
	dErrors "teamdns/pkg/domain-errors"
	"teamdns/pkg/platform/httputil"
	"teamdns/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the team boundary as seen from HTTP.
type Service interface {
	CreateTeam(ctx context.Context, principal id.UserID, req *models.CreateTeamRequest) (*models.Team, error)
	ListTeams(ctx context.Context, principal id.UserID) ([]*models.Team, error)
	GetTeam(ctx context.Context, principal id.UserID, teamID id.TeamID) (*models.TeamDetails, error)
	UpdateTeam(ctx context.Context, principal id.UserID, teamID id.TeamID, req *models.UpdateTeamRequest) (*models.Team, error)
	DeleteTeam(ctx context.Context, principal id.UserID, teamID id.TeamID) error
	AddMember(ctx context.Context, principal id.UserID, teamID id.TeamID, userID id.UserID, role models.Role) (*models.Membership, error)
	UpdateMemberRole(ctx context.Context, principal id.UserID, teamID id.TeamID, userID id.UserID, role models.Role) (*models.Membership, error)
	RemoveMember(ctx context.Context, principal id.UserID, teamID id.TeamID, userID id.UserID) error
}

type Handler struct {
	teams  Service
	logger *slog.Logger
}

func New(teams Service, logger *slog.Logger) *Handler {
	return &Handler{teams: teams, logger: logger}
}

// Register mounts the team routes. RequireAuth must run upstream.
func (h *Handler) Register(r chi.Router) {
	r.Post("/teams", h.HandleCreateTeam)
	r.Get("/teams", h.HandleListTeams)
	r.Get("/teams/{teamID}", h.HandleGetTeam)
	r.Put("/teams/{teamID}", h.HandleUpdateTeam)
	r.Delete("/teams/{teamID}", h.HandleDeleteTeam)
	r.Post("/teams/{teamID}/members/{userID}", h.HandleAddMember)
	r.Put("/teams/{teamID}/members/{userID}", h.HandleUpdateMemberRole)
	r.Delete("/teams/{teamID}/members/{userID}", h.HandleRemoveMember)
}

func (h *Handler) HandleCreateTeam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := requestcontext.UserID(ctx)
	var req models.CreateTeamRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	team, err := h.teams.CreateTeam(ctx, principal, &req)
	if err != nil {
		h.fail(ctx, w, "failed to create team", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToTeamResponse(team))
}

func (h *Handler) HandleListTeams(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teams, err := h.teams.ListTeams(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to list teams", err)
		return
	}
	resp := make([]models.TeamResponse, 0, len(teams))
	for _, t := range teams {
		resp = append(resp, models.ToTeamResponse(t))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGetTeam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID, ok := h.teamID(w, r)
	if !ok {
		return
	}
	details, err := h.teams.GetTeam(ctx, requestcontext.UserID(ctx), teamID)
	if err != nil {
		h.fail(ctx, w, "failed to load team", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToTeamDetailResponse(details))
}

func (h *Handler) HandleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID, ok := h.teamID(w, r)
	if !ok {
		return
	}
	var req models.UpdateTeamRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	team, err := h.teams.UpdateTeam(ctx, requestcontext.UserID(ctx), teamID, &req)
	if err != nil {
		h.fail(ctx, w, "failed to update team", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToTeamResponse(team))
}

func (h *Handler) HandleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID, ok := h.teamID(w, r)
	if !ok {
		return
	}
	if err := h.teams.DeleteTeam(ctx, requestcontext.UserID(ctx), teamID); err != nil {
		h.fail(ctx, w, "failed to delete team", err)
		return
	}
	httputil.WriteNoContent(w)
}

// HandleAddMember takes the role from an optional JSON body or the role
// query parameter. Missing means member.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID, userID, role, ok := h.memberParams(w, r)
	if !ok {
		return
	}
	m, err := h.teams.AddMember(ctx, requestcontext.UserID(ctx), teamID, userID, role)
	if err != nil {
		h.fail(ctx, w, "failed to add member", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToMemberResponse(&models.Member{Membership: *m}))
}

func (h *Handler) HandleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID, userID, role, ok := h.memberParams(w, r)
	if !ok {
		return
	}
	m, err := h.teams.UpdateMemberRole(ctx, requestcontext.UserID(ctx), teamID, userID, role)
	if err != nil {
		h.fail(ctx, w, "failed to update member role", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToMemberResponse(&models.Member{Membership: *m}))
}

func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID, ok := h.teamID(w, r)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.teams.RemoveMember(ctx, requestcontext.UserID(ctx), teamID, userID); err != nil {
		h.fail(ctx, w, "failed to remove member", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handler) teamID(w http.ResponseWriter, r *http.Request) (id.TeamID, bool) {
	teamID, err := id.ParseTeamID(chi.URLParam(r, "teamID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.TeamID{}, false
	}
	return teamID, true
}

func (h *Handler) memberParams(w http.ResponseWriter, r *http.Request) (id.TeamID, id.UserID, models.Role, bool) {
	teamID, ok := h.teamID(w, r)
	if !ok {
		return id.TeamID{}, id.UserID{}, "", false
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.TeamID{}, id.UserID{}, "", false
	}
	var req models.MemberRoleRequest
	if err := httputil.DecodeOptionalJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return id.TeamID{}, id.UserID{}, "", false
	}
	if req.Role == "" {
		req.Role = r.URL.Query().Get("role")
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return id.TeamID{}, id.UserID{}, "", false
	}
	return teamID, userID, role, true
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
