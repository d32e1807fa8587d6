// Package rbac evaluates role grants against the permission catalog.
//
// Grants use the external string format "module.action" for exact grants and
// "module.*" for a wildcard over every action the module currently defines.
// Strings are parsed once into Grant values at the role boundary.
package rbac

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Wildcard is the action segment of a module-wide grant.
const Wildcard = "*"

// Grant is either an exact grant {Module, Action} or a wildcard {Module, "*"}.
type Grant struct {
	Module string
	Action string
}

// Exact builds an exact grant.
func Exact(module, action string) Grant {
	return Grant{Module: module, Action: action}
}

// AllOf builds the wildcard grant of a module.
func AllOf(module string) Grant {
	return Grant{Module: module, Action: Wildcard}
}

// IsWildcard reports whether g covers every action of its module.
func (g Grant) IsWildcard() bool {
	return g.Action == Wildcard
}

func (g Grant) String() string {
	return g.Module + "." + g.Action
}

// ParseGrant parses "module.action" or "module.*". The module of an exact
// grant is the text before the first dot. Strings without a dot, or with an
// empty module or action, are malformed and grant nothing.
func ParseGrant(s string) (Grant, bool) {
	if module, ok := strings.CutSuffix(s, "."+Wildcard); ok {
		if module == "" {
			return Grant{}, false
		}
		return AllOf(module), true
	}
	module, action, ok := strings.Cut(s, ".")
	if !ok || module == "" || action == "" {
		return Grant{}, false
	}
	return Exact(module, action), true
}

// Set is a deduplicated collection of grants.
type Set map[Grant]struct{}

// NewSet builds a set from grants.
func NewSet(grants ...Grant) Set {
	s := make(Set, len(grants))
	for _, g := range grants {
		s[g] = struct{}{}
	}
	return s
}

// ParseSet parses permission strings, collapsing duplicates. Malformed
// strings are returned separately and left out of the set.
func ParseSet(perms []string) (Set, []string) {
	s := make(Set, len(perms))
	var invalid []string
	for _, p := range perms {
		g, ok := ParseGrant(p)
		if !ok {
			invalid = append(invalid, p)
			continue
		}
		s[g] = struct{}{}
	}
	return s, invalid
}

// MustParseSet is ParseSet for literals; it panics on malformed input.
func MustParseSet(perms ...string) Set {
	s, invalid := ParseSet(perms)
	if len(invalid) > 0 {
		panic(fmt.Sprintf("rbac: malformed grants %q", invalid))
	}
	return s
}

// Add inserts g.
func (s Set) Add(g Grant) {
	s[g] = struct{}{}
}

// Has reports membership of g.
func (s Set) Has(g Grant) bool {
	_, ok := s[g]
	return ok
}

// Len returns the number of distinct grants.
func (s Set) Len() int {
	return len(s)
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for g := range s {
		out[g] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same grants.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for g := range s {
		if !other.Has(g) {
			return false
		}
	}
	return true
}

// Strings returns the grants in their string form, sorted.
func (s Set) Strings() []string {
	out := make([]string, 0, len(s))
	for g := range s {
		out = append(out, g.String())
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array of permission strings.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes an array of permission strings.
func (s *Set) UnmarshalJSON(data []byte) error {
	var perms []string
	if err := json.Unmarshal(data, &perms); err != nil {
		return err
	}
	parsed, invalid := ParseSet(perms)
	if len(invalid) > 0 {
		return fmt.Errorf("rbac: malformed grants %q: %w", invalid, shared.ErrValidation)
	}
	*s = parsed
	return nil
}
