package catalog

// Action is an atomic operation inside a module, e.g. "view" or "approve".
type Action struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Module groups the actions of one functional area of an application.
type Module struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Actions     []Action `json:"actions" yaml:"actions"`
}

// Application is a top-level product area (Sales, HR, ...) owning its modules.
type Application struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description"`
	IsEnabled   bool       `json:"isEnabled" yaml:"enabled"`
	Color       string     `json:"color,omitempty" yaml:"color"`
	Icon        string     `json:"icon,omitempty" yaml:"icon"`
	Modules     []Module   `json:"modules" yaml:"modules"`
	SeedRoles   []SeedRole `json:"-" yaml:"roles"`
}

// SeedRole is a role shipped with the catalog and installed at startup.
type SeedRole struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	IsSystem    bool     `yaml:"system"`
	Permissions []string `yaml:"permissions"`
}

// Module returns the module with the given id.
func (a Application) Module(id string) (Module, bool) {
	for _, m := range a.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return Module{}, false
}

func (a Application) clone() Application {
	out := a
	out.Modules = make([]Module, len(a.Modules))
	for i, m := range a.Modules {
		out.Modules[i] = m.clone()
	}
	if a.SeedRoles != nil {
		out.SeedRoles = make([]SeedRole, len(a.SeedRoles))
		for i, r := range a.SeedRoles {
			r.Permissions = append([]string(nil), r.Permissions...)
			out.SeedRoles[i] = r
		}
	}
	return out
}

func (m Module) clone() Module {
	out := m
	out.Actions = make([]Action, len(m.Actions))
	copy(out.Actions, m.Actions)
	return out
}
