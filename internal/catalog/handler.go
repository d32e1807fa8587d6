package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/httpx"
)

// Handler serves the read-only catalog.
type Handler struct {
	catalog *Catalog
}

// NewHandler builds Handler instance.
func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

// MountRoutes registers catalog routes below /apps.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listApplications)
}

// MountApplicationRoutes registers module routes below /apps/{appID}.
func (h *Handler) MountApplicationRoutes(r chi.Router) {
	r.Get("/modules", h.listModules)
	r.Get("/modules/{moduleID}/actions", h.listActions)
}

type applicationSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsEnabled   bool   `json:"isEnabled"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
	ModuleCount int    `json:"moduleCount"`
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	apps := h.catalog.ListApplications()
	out := make([]applicationSummary, 0, len(apps))
	for _, app := range apps {
		out = append(out, applicationSummary{
			ID:          app.ID,
			Name:        app.Name,
			Description: app.Description,
			IsEnabled:   app.IsEnabled,
			Color:       app.Color,
			Icon:        app.Icon,
			ModuleCount: len(app.Modules),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"applications": out})
}

func (h *Handler) listModules(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")
	if !h.catalog.HasApplication(appID) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "application "+appID+" not found")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"modules": h.catalog.ListModules(appID)})
}

func (h *Handler) listActions(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")
	moduleID := chi.URLParam(r, "moduleID")
	if _, ok := h.catalog.GetModule(appID, moduleID); !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "module "+appID+"/"+moduleID+" not found")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"actions": h.catalog.ListActions(appID, moduleID)})
}
