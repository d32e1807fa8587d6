package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/httpx"
)

// DecisionRecorder observes permission decisions.
type DecisionRecorder interface {
	ObserveDecision(appID string, allowed bool)
}

// AppLookup reports whether an application exists.
type AppLookup interface {
	HasApplication(appID string) bool
}

// Handler exposes the decision endpoints of the Engine.
type Handler struct {
	logger    *slog.Logger
	engine    *Engine
	apps      AppLookup
	recorder  DecisionRecorder
	validator *validator.Validate
}

// NewHandler builds Handler instance. recorder may be nil.
func NewHandler(logger *slog.Logger, engine *Engine, apps AppLookup, recorder DecisionRecorder) *Handler {
	return &Handler{logger: logger, engine: engine, apps: apps, recorder: recorder, validator: NewValidator()}
}

// MountRoutes registers decision routes below /apps/{appID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/expand", h.expand)
	r.Post("/check", h.check)
}

type expandRequest struct {
	Permissions []string `json:"permissions" validate:"dive,grant"`
}

type expandResponse struct {
	Permissions Set `json:"permissions"`
	Count       int `json:"count"`
}

type checkRequest struct {
	Permissions []string `json:"permissions" validate:"dive,grant"`
	Permission  string   `json:"permission" validate:"required"`
}

type checkResponse struct {
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

func (h *Handler) expand(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.appID(w, r)
	if !ok {
		return
	}
	var req expandRequest
	if !httpx.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}
	grants, _ := ParseSet(req.Permissions)
	expanded := h.engine.Expand(appID, grants)
	httpx.JSON(w, http.StatusOK, expandResponse{Permissions: expanded, Count: expanded.Len()})
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.appID(w, r)
	if !ok {
		return
	}
	var req checkRequest
	if !httpx.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}
	grants, _ := ParseSet(req.Permissions)
	allowed := h.engine.HasPermission(appID, grants, req.Permission)
	if h.recorder != nil {
		h.recorder.ObserveDecision(appID, allowed)
	}
	if h.logger != nil {
		h.logger.Debug("rbac check", slog.String("app", appID), slog.String("permission", req.Permission), slog.Bool("allowed", allowed))
	}
	httpx.JSON(w, http.StatusOK, checkResponse{Permission: req.Permission, Allowed: allowed})
}

func (h *Handler) appID(w http.ResponseWriter, r *http.Request) (string, bool) {
	appID := chi.URLParam(r, "appID")
	if h.apps != nil && !h.apps.HasApplication(appID) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "application "+appID+" not found")
		return "", false
	}
	return appID, true
}
