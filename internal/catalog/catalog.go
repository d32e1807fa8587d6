// Package catalog holds the applications, modules and actions that permission
// strings can refer to.
//
// A Catalog is safe for concurrent use. Lookups never fail: unknown ids yield
// empty results so permission checks stay total over arbitrary input.
package catalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Catalog is the in-memory application/module/action structure.
type Catalog struct {
	mu    sync.RWMutex
	apps  []Application
	index map[string]int
}

// New validates the definitions and builds a Catalog.
func New(apps ...Application) (*Catalog, error) {
	c := &Catalog{
		apps:  make([]Application, 0, len(apps)),
		index: make(map[string]int, len(apps)),
	}
	for _, app := range apps {
		if err := validateApplication(app); err != nil {
			return nil, err
		}
		if _, dup := c.index[app.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate application %q: %w", app.ID, shared.ErrConflict)
		}
		c.index[app.ID] = len(c.apps)
		c.apps = append(c.apps, app.clone())
	}
	return c, nil
}

// MustNew is New for static definitions; it panics on invalid input.
func MustNew(apps ...Application) *Catalog {
	c, err := New(apps...)
	if err != nil {
		panic(err)
	}
	return c
}

// ListApplications returns every application in definition order.
func (c *Catalog) ListApplications() []Application {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Application, len(c.apps))
	for i, app := range c.apps {
		out[i] = app.clone()
	}
	return out
}

// GetApplication looks an application up by id.
func (c *Catalog) GetApplication(appID string) (Application, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.index[appID]
	if !ok {
		return Application{}, false
	}
	return c.apps[idx].clone(), true
}

// HasApplication reports whether appID is defined.
func (c *Catalog) HasApplication(appID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[appID]
	return ok
}

// ListModules returns the modules of an application, or nil when it is unknown.
func (c *Catalog) ListModules(appID string) []Module {
	app, ok := c.GetApplication(appID)
	if !ok {
		return nil
	}
	return app.Modules
}

// GetModule looks a module up inside an application.
func (c *Catalog) GetModule(appID, moduleID string) (Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.index[appID]
	if !ok {
		return Module{}, false
	}
	m, ok := c.apps[idx].Module(moduleID)
	if !ok {
		return Module{}, false
	}
	return m.clone(), true
}

// ListActions returns the actions of a module, or nil when either id is unknown.
func (c *Catalog) ListActions(appID, moduleID string) []Action {
	m, ok := c.GetModule(appID, moduleID)
	if !ok {
		return nil
	}
	return m.Actions
}

// AddAction appends an action to an existing module. Roles holding the
// module wildcard see the new action on their next expansion.
func (c *Catalog) AddAction(appID, moduleID string, action Action) error {
	if err := validateID("action", action.ID); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.moduleLocked(appID, moduleID)
	if err != nil {
		return err
	}
	for _, existing := range m.Actions {
		if existing.ID == action.ID {
			return fmt.Errorf("catalog: action %s.%s already defined: %w", moduleID, action.ID, shared.ErrConflict)
		}
	}
	if action.Name == "" {
		action.Name = displayName(action.ID)
	}
	m.Actions = append(m.Actions, action)
	return nil
}

// RemoveAction drops an action from a module.
func (c *Catalog) RemoveAction(appID, moduleID, actionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.moduleLocked(appID, moduleID)
	if err != nil {
		return err
	}
	for i, existing := range m.Actions {
		if existing.ID == actionID {
			m.Actions = append(m.Actions[:i:i], m.Actions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("catalog: action %s.%s: %w", moduleID, actionID, shared.ErrNotFound)
}

func (c *Catalog) moduleLocked(appID, moduleID string) (*Module, error) {
	idx, ok := c.index[appID]
	if !ok {
		return nil, fmt.Errorf("catalog: application %s: %w", appID, shared.ErrNotFound)
	}
	app := &c.apps[idx]
	for i := range app.Modules {
		if app.Modules[i].ID == moduleID {
			return &app.Modules[i], nil
		}
	}
	return nil, fmt.Errorf("catalog: module %s.%s: %w", appID, moduleID, shared.ErrNotFound)
}

func validateApplication(app Application) error {
	if strings.TrimSpace(app.ID) == "" {
		return fmt.Errorf("catalog: application id required: %w", shared.ErrValidation)
	}
	modules := make(map[string]struct{}, len(app.Modules))
	for _, m := range app.Modules {
		if err := validateID("module", m.ID); err != nil {
			return fmt.Errorf("catalog: application %s: %w", app.ID, err)
		}
		if _, dup := modules[m.ID]; dup {
			return fmt.Errorf("catalog: duplicate module %s.%s: %w", app.ID, m.ID, shared.ErrConflict)
		}
		modules[m.ID] = struct{}{}
		actions := make(map[string]struct{}, len(m.Actions))
		for _, a := range m.Actions {
			if err := validateID("action", a.ID); err != nil {
				return fmt.Errorf("catalog: module %s.%s: %w", app.ID, m.ID, err)
			}
			if _, dup := actions[a.ID]; dup {
				return fmt.Errorf("catalog: duplicate action %s.%s.%s: %w", app.ID, m.ID, a.ID, shared.ErrConflict)
			}
			actions[a.ID] = struct{}{}
		}
	}
	seeds := make(map[string]struct{}, len(app.SeedRoles))
	for _, r := range app.SeedRoles {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("catalog: application %s: seed role id required: %w", app.ID, shared.ErrValidation)
		}
		if _, dup := seeds[r.ID]; dup {
			return fmt.Errorf("catalog: duplicate seed role %s/%s: %w", app.ID, r.ID, shared.ErrConflict)
		}
		seeds[r.ID] = struct{}{}
	}
	return nil
}

// validateID rejects ids that would make permission strings ambiguous.
func validateID(kind, id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%s id required: %w", kind, shared.ErrValidation)
	case id == "*":
		return fmt.Errorf("%s id %q is reserved: %w", kind, id, shared.ErrValidation)
	case strings.ContainsAny(id, ". \t\n"):
		return fmt.Errorf("%s id %q must not contain dots or spaces: %w", kind, id, shared.ErrValidation)
	}
	return nil
}
