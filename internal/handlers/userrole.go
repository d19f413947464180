package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/campuscore/backend/internal/apperrors"
	"github.com/campuscore/backend/internal/handlers/render"
	"github.com/campuscore/backend/internal/models"
)

type userRoleService interface {
	Assign(ctx context.Context, accountID int64, roleID int64) (models.RoleAssignment, error)
	Remove(ctx context.Context, accountID int64, roleID int64) error
	HasRole(ctx context.Context, accountID int64, roleID int64) (bool, error)
	HasRoleNamed(ctx context.Context, accountID int64, roleName string) (bool, error)
	RoleNames(ctx context.Context, accountID int64) ([]string, error)
	GetByAccountAndRole(ctx context.Context, accountID int64, roleID int64) (models.RoleAssignment, error)
	ListByAccount(ctx context.Context, accountID int64) ([]models.RoleAssignment, error)
	ListByRole(ctx context.Context, roleID int64) ([]models.RoleAssignment, error)
}

type UserRoleHandler struct {
	service userRoleService
}

func NewUserRole(service userRoleService) *UserRoleHandler {
	return &UserRoleHandler{service: service}
}

func (h *UserRoleHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /assign", h.assign)
	mux.HandleFunc("DELETE /remove", h.remove)
	mux.HandleFunc("POST /has-role", h.hasRole)
	mux.HandleFunc("GET /has-role", h.hasRoleNamed)
	mux.HandleFunc("POST /by-user-and-role", h.byUserAndRole)
	mux.HandleFunc("GET /by-user/{userId}", h.listByUser)
	mux.HandleFunc("GET /by-role/{roleId}", h.listByRole)
	mux.HandleFunc("GET /role-names/{userId}", h.roleNames)

	return mux
}

type assignmentPairRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
	RoleID int64 `json:"roleId" validate:"required,gt=0"`
}

type assignmentResponse struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"userId"`
	RoleID   int64  `json:"roleId"`
	IsActive bool   `json:"isActive"`
	Username string `json:"username,omitempty"`
	RoleName string `json:"roleName,omitempty"`
}

func toAssignmentResponse(a models.RoleAssignment) assignmentResponse {
	return assignmentResponse{
		ID:       a.ID,
		UserID:   a.AccountID,
		RoleID:   a.RoleID,
		IsActive: a.IsActive,
		Username: a.Username,
		RoleName: a.RoleName,
	}
}

func (h *UserRoleHandler) assign(w http.ResponseWriter, r *http.Request) {
	data, err := render.BindAndValidate[assignmentPairRequest](w, r)
	if err != nil {
		return
	}

	assignment, err := h.service.Assign(r.Context(), data.UserID, data.RoleID)
	if err != nil {
		userRoleError(w, err)
		return
	}

	render.JSONWithStatus(w, toAssignmentResponse(assignment), http.StatusCreated)
}

func (h *UserRoleHandler) remove(w http.ResponseWriter, r *http.Request) {
	data, err := render.BindAndValidate[assignmentPairRequest](w, r)
	if err != nil {
		return
	}

	if err := h.service.Remove(r.Context(), data.UserID, data.RoleID); err != nil {
		userRoleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserRoleHandler) hasRole(w http.ResponseWriter, r *http.Request) {
	type HasRoleResponse struct {
		HasRole bool `json:"hasRole"`
	}

	data, err := render.BindAndValidate[assignmentPairRequest](w, r)
	if err != nil {
		return
	}

	has, err := h.service.HasRole(r.Context(), data.UserID, data.RoleID)
	if err != nil {
		userRoleError(w, err)
		return
	}

	render.JSON(w, HasRoleResponse{HasRole: has})
}

// GET variant keyed by role name, for callers that only know the name
func (h *UserRoleHandler) hasRoleNamed(w http.ResponseWriter, r *http.Request) {
	type HasRoleResponse struct {
		HasRole bool `json:"hasRole"`
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		render.ServiceError(w, "Query parameter 'userId' must be an integer", http.StatusBadRequest)
		return
	}
	roleName := r.URL.Query().Get("role")

	has, err := h.service.HasRoleNamed(r.Context(), userID, roleName)
	if err != nil {
		userRoleError(w, err)
		return
	}

	render.JSON(w, HasRoleResponse{HasRole: has})
}

func (h *UserRoleHandler) byUserAndRole(w http.ResponseWriter, r *http.Request) {
	data, err := render.BindAndValidate[assignmentPairRequest](w, r)
	if err != nil {
		return
	}

	assignment, err := h.service.GetByAccountAndRole(r.Context(), data.UserID, data.RoleID)
	if err != nil {
		userRoleError(w, err)
		return
	}

	render.JSON(w, toAssignmentResponse(assignment))
}

func (h *UserRoleHandler) listByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	assignments, err := h.service.ListByAccount(r.Context(), userID)
	if err != nil {
		userRoleError(w, err)
		return
	}

	render.JSON(w, toAssignmentResponses(assignments))
}

func (h *UserRoleHandler) listByRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "roleId")
	if !ok {
		return
	}

	assignments, err := h.service.ListByRole(r.Context(), roleID)
	if err != nil {
		userRoleError(w, err)
		return
	}

	render.JSON(w, toAssignmentResponses(assignments))
}

func (h *UserRoleHandler) roleNames(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	names, err := h.service.RoleNames(r.Context(), userID)
	if err != nil {
		userRoleError(w, err)
		return
	}

	if names == nil {
		names = []string{}
	}
	render.JSON(w, names)
}

func toAssignmentResponses(assignments []models.RoleAssignment) []assignmentResponse {
	response := make([]assignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		response = append(response, toAssignmentResponse(a))
	}
	return response
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		render.ServiceError(w, "Path parameter '"+name+"' must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func userRoleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		render.ServiceError(w, "Invalid user or role identifier", http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrRoleNotAssigned):
		render.ServiceError(w, "Role is not assigned to the user", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrRoleNotFound), errors.Is(err, apperrors.ErrAccountNotFound):
		render.ServiceError(w, "User or role not found", http.StatusNotFound)
	default:
		render.ServiceError(w, "An error occurred while managing user roles", http.StatusInternalServerError)
	}
}
