package rbac

import (
	"github.com/odyssey-erp/odyssey-rbac/internal/catalog"
)

// Catalog is the read side of the permission catalog used by the Engine.
type Catalog interface {
	GetModule(appID, moduleID string) (catalog.Module, bool)
}

// Engine expands and checks grants against a live catalog. Every method is
// pure and total: unknown applications, dangling modules and malformed input
// yield empty, false or zero results.
type Engine struct {
	catalog Catalog
}

// NewEngine constructs an Engine reading from c.
func NewEngine(c Catalog) *Engine {
	return &Engine{catalog: c}
}

// Expand resolves grants into the set of exact permissions they imply.
// Wildcards are resolved against the module's current actions; a wildcard
// over an unknown module contributes nothing. Exact grants pass through
// unchanged whether or not the catalog defines them.
func (e *Engine) Expand(appID string, grants Set) Set {
	out := make(Set, len(grants))
	for g := range grants {
		if !g.IsWildcard() {
			out.Add(g)
			continue
		}
		m, ok := e.catalog.GetModule(appID, g.Module)
		if !ok {
			continue
		}
		for _, a := range m.Actions {
			out.Add(Exact(m.ID, a.ID))
		}
	}
	return out
}

// HasPermission reports whether grants contain candidate exactly or hold the
// wildcard of the candidate's module. It is a two-lookup membership test and
// does not consult the catalog, so a wildcard over a module the catalog does
// not define still matches.
func (e *Engine) HasPermission(appID string, grants Set, candidate string) bool {
	g, ok := ParseGrant(candidate)
	if !ok || g.IsWildcard() {
		return false
	}
	return grants.Has(g) || grants.Has(AllOf(g.Module))
}

// CountEffective is the size of Expand(appID, grants).
func (e *Engine) CountEffective(appID string, grants Set) int {
	return e.Expand(appID, grants).Len()
}
