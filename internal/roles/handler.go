package roles

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-rbac/internal/catalog"
	"github.com/odyssey-erp/odyssey-rbac/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Handler manages role endpoints below /apps/{appID}.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	catalog       *catalog.Catalog
	validator     *validator.Validate
	protectSystem bool
}

// NewHandler builds Handler instance. With protectSystem, system roles cannot
// be deleted, renamed or demoted through the API.
func NewHandler(logger *slog.Logger, service *Service, c *catalog.Catalog, protectSystem bool) *Handler {
	return &Handler{
		logger:        logger,
		service:       service,
		catalog:       c,
		validator:     rbac.NewValidator(),
		protectSystem: protectSystem,
	}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showApplication)
	r.Route("/roles", func(r chi.Router) {
		r.Get("/", h.listRoles)
		r.Post("/", h.createRole)
		r.Get("/{roleID}", h.showRole)
		r.Patch("/{roleID}", h.updateRole)
		r.Delete("/{roleID}", h.deleteRole)
		r.Get("/{roleID}/permissions", h.showEffectivePermissions)
	})
}

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,max=120"`
	Description string   `json:"description" validate:"max=500"`
	IsSystem    bool     `json:"isSystem"`
	Permissions []string `json:"permissions" validate:"dive,grant"`
}

type updateRoleRequest struct {
	Name        *string   `json:"name" validate:"omitempty,max=120"`
	Description *string   `json:"description" validate:"omitempty,max=500"`
	IsSystem    *bool     `json:"isSystem"`
	Permissions *[]string `json:"permissions" validate:"omitempty,dive,grant"`
}

type applicationResponse struct {
	catalog.Application
	Roles []Role `json:"roles"`
}

type listRolesResponse struct {
	Roles      []Role            `json:"roles"`
	Pagination shared.Pagination `json:"pagination"`
}

type effectivePermissionsResponse struct {
	RoleID      string            `json:"roleId"`
	Permissions rbac.Set          `json:"permissions"`
	Count       int               `json:"count"`
	Stale       []rbac.StaleGrant `json:"stale"`
}

func (h *Handler) showApplication(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")
	app, ok := h.catalog.GetApplication(appID)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "application "+appID+" not found")
		return
	}
	roles, err := h.service.ListRoles(r.Context(), appID)
	if err != nil {
		h.fail(w, "list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, applicationResponse{Application: app, Roles: roles})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context(), chi.URLParam(r, "appID"))
	if err != nil {
		h.fail(w, "list roles", err)
		return
	}
	if roles == nil {
		roles = []Role{}
	}
	page := shared.PaginationFromQuery(r.URL.Query(), len(roles))
	start, end := page.Bounds()
	httpx.JSON(w, http.StatusOK, listRolesResponse{Roles: roles[start:end], Pagination: page})
}

func (h *Handler) showRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GetRole(r.Context(), chi.URLParam(r, "appID"), chi.URLParam(r, "roleID"))
	if err != nil {
		h.fail(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if !httpx.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		httpx.ValidationProblem(w, map[string]string{"name": "required"})
		return
	}
	perms, _ := rbac.ParseSet(req.Permissions)
	role, err := h.service.AddRole(r.Context(), chi.URLParam(r, "appID"), RoleInput{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		IsSystem:    req.IsSystem,
		Permissions: perms,
	})
	if err != nil {
		h.fail(w, "create role", err)
		return
	}
	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+role.ID)
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	appID, roleID := chi.URLParam(r, "appID"), chi.URLParam(r, "roleID")
	var req updateRoleRequest
	if !httpx.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}
	update := RoleUpdate{IsSystem: req.IsSystem}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			httpx.ValidationProblem(w, map[string]string{"name": "required"})
			return
		}
		update.Name = &name
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		update.Description = &description
	}
	if req.Permissions != nil {
		update.Permissions, _ = rbac.ParseSet(*req.Permissions)
	}
	var check Precondition
	if h.protectSystem {
		check = func(current Role) error {
			if current.IsSystem && altersIdentity(current, update) {
				return fmt.Errorf("system role %s cannot be renamed or demoted: %w", roleID, shared.ErrConflict)
			}
			return nil
		}
	}
	role, err := h.service.UpdateRoleIf(r.Context(), appID, roleID, update, check)
	if err != nil {
		h.fail(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	appID, roleID := chi.URLParam(r, "appID"), chi.URLParam(r, "roleID")
	var check Precondition
	if h.protectSystem {
		check = func(current Role) error {
			if current.IsSystem {
				return fmt.Errorf("system role %s cannot be deleted: %w", roleID, shared.ErrConflict)
			}
			return nil
		}
	}
	if err := h.service.DeleteRoleIf(r.Context(), appID, roleID, check); err != nil {
		h.fail(w, "delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) showEffectivePermissions(w http.ResponseWriter, r *http.Request) {
	appID, roleID := chi.URLParam(r, "appID"), chi.URLParam(r, "roleID")
	expanded, err := h.service.EffectivePermissions(r.Context(), appID, roleID)
	if err != nil {
		h.fail(w, "effective permissions", err)
		return
	}
	stale, err := h.service.StaleGrants(r.Context(), appID, roleID)
	if err != nil {
		h.fail(w, "stale grants", err)
		return
	}
	if stale == nil {
		stale = []rbac.StaleGrant{}
	}
	httpx.JSON(w, http.StatusOK, effectivePermissionsResponse{
		RoleID:      roleID,
		Permissions: expanded,
		Count:       expanded.Len(),
		Stale:       stale,
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil && !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrConflict) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func altersIdentity(current Role, u RoleUpdate) bool {
	if u.Name != nil && *u.Name != current.Name {
		return true
	}
	return u.IsSystem != nil && !*u.IsSystem
}
