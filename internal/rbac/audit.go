package rbac

import (
	"sort"

	"github.com/odyssey-erp/odyssey-rbac/internal/catalog"
)

// Stale grant reasons.
const (
	ReasonUnknownModule = "unknown_module"
	ReasonUnknownAction = "unknown_action"
)

// StaleGrant is a grant that references nothing in the catalog.
type StaleGrant struct {
	Permission string `json:"permission"`
	Reason     string `json:"reason"`
}

// StaleGrants reports grants pointing at modules or actions the catalog no
// longer defines. Expansion and checks stay permissive; this is a report only.
func (e *Engine) StaleGrants(appID string, grants Set) []StaleGrant {
	var stale []StaleGrant
	for g := range grants {
		m, ok := e.catalog.GetModule(appID, g.Module)
		if !ok {
			stale = append(stale, StaleGrant{Permission: g.String(), Reason: ReasonUnknownModule})
			continue
		}
		if g.IsWildcard() || hasAction(m.Actions, g.Action) {
			continue
		}
		stale = append(stale, StaleGrant{Permission: g.String(), Reason: ReasonUnknownAction})
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].Permission < stale[j].Permission })
	return stale
}

func hasAction(actions []catalog.Action, id string) bool {
	for _, a := range actions {
		if a.ID == id {
			return true
		}
	}
	return false
}
