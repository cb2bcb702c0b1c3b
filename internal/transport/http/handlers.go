package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"casetrack/internal/authz"
	"casetrack/internal/domain"
	"casetrack/internal/dto"
	"casetrack/internal/observability/metrics"
	obsmw "casetrack/internal/observability/middleware"
	"casetrack/internal/service"
	"casetrack/internal/store"
	"casetrack/internal/workflow"
)

type handler struct {
	svc Services
}

func actorFrom(r *http.Request) (service.Actor, bool) {
	a, ok := authz.ActorFromContext(r.Context())
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{ID: a.ID, Role: a.Role}, true
}

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	var req dto.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	usr, err := h.svc.Users.Create(r.Context(), actor, service.CreateUserInput{
		Email: req.Email,
		Name:  req.Name,
		Role:  domain.Role(req.Role),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewUserResponse(usr))
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := dto.UserListResponse{Users: make([]dto.UserResponse, 0, len(users))}
	for i := range users {
		resp.Users = append(resp.Users, dto.NewUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	usr, err := h.svc.Users.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(usr))
}

func (h *handler) setUserActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req dto.SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	usr, err := h.svc.Users.SetActive(r.Context(), actor, id, req.Active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(usr))
}

func (h *handler) userWorkload(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	wl, err := h.svc.Cases.Workload(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WorkloadResponse{
		UserID: wl.UserID.String(),
		Active: wl.Active,
		Limit:  wl.Limit,
	})
}

func (h *handler) createCase(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	var req dto.CreateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	cs, err := h.svc.Cases.Create(r.Context(), actor, service.CreateCaseInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.Priority(req.Priority),
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	metrics.CasesCreatedTotal.WithLabelValues().Inc()
	slog.Info("case created",
		"case_id", cs.ID, "creator_id", actor.ID,
		"request_id", obsmw.RequestIDFromContext(r.Context()))
	writeJSON(w, http.StatusCreated, dto.NewCaseResponse(cs))
}

func (h *handler) listCases(w http.ResponseWriter, r *http.Request) {
	var f store.CaseFilter
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		st := domain.CaseStatus(v)
		f.Status = &st
	}
	if v := q.Get("assignee_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			http.Error(w, "invalid assignee_id", http.StatusBadRequest)
			return
		}
		f.AssigneeID = &id
	}
	if v := q.Get("creator_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			http.Error(w, "invalid creator_id", http.StatusBadRequest)
			return
		}
		f.CreatorID = &id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		f.Limit = n
	}
	cases, err := h.svc.Cases.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := dto.CaseListResponse{Cases: make([]dto.CaseResponse, 0, len(cases))}
	for i := range cases {
		resp.Cases = append(resp.Cases, dto.NewCaseResponse(&cases[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getCase(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	cs, err := h.svc.Cases.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewCaseResponse(cs))
}

func (h *handler) updateCase(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req dto.UpdateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	in := service.UpdateCaseInput{
		Title:       req.Title,
		Description: req.Description,
		Metadata:    req.Metadata,
	}
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		in.Priority = &p
	}
	cs, err := h.svc.Cases.UpdateDetails(r.Context(), actor, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewCaseResponse(cs))
}

func (h *handler) deleteCase(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.svc.Cases.Delete(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) caseTrail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	entries, err := h.svc.Cases.Trail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := dto.AuditTrailResponse{Entries: make([]dto.AuditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, dto.AuditEntryResponse{
			ID:          e.ID.String(),
			CaseID:      e.CaseID.String(),
			ActorID:     e.ActorID.String(),
			Action:      e.Action,
			FromStatus:  string(e.FromStatus),
			ToStatus:    string(e.ToStatus),
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) transitionCase(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req dto.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	action := workflow.Action(req.Action)

	params := service.TransitionParams{Comment: req.Comment}
	if req.AssigneeID != "" {
		target, err := uuid.Parse(req.AssigneeID)
		if err != nil {
			http.Error(w, "invalid assigneeId", http.StatusBadRequest)
			return
		}
		params.AssigneeID = &target
	}

	cs, err := h.svc.Workflow.Transition(r.Context(), id, action, actor, params)
	if err != nil {
		metrics.CaseTransitionsTotal.WithLabelValues(req.Action, "failure").Inc()
		slog.Info("transition rejected",
			"case_id", id, "action", req.Action, "actor_id", actor.ID, "error", err,
			"request_id", obsmw.RequestIDFromContext(r.Context()))
		writeError(w, r, err)
		return
	}
	metrics.CaseTransitionsTotal.WithLabelValues(req.Action, "success").Inc()
	slog.Info("transition applied",
		"case_id", cs.ID, "action", req.Action, "status", cs.Status, "actor_id", actor.ID,
		"request_id", obsmw.RequestIDFromContext(r.Context()))
	writeJSON(w, http.StatusOK, dto.NewCaseResponse(cs))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps the workflow's business-rule outcomes to HTTP statuses. The
// error text is the user-facing reason; infrastructure failures collapse to a
// generic 500 and get logged at error severity.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrCaseNotFound), errors.Is(err, domain.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrWorkloadExceeded):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAssigneeIneligible), errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	default:
		slog.Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err,
			"request_id", obsmw.RequestIDFromContext(r.Context()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Error(w, err.Error(), status)
}
