package roles

import (
	"time"

	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
)

// Role is a named bundle of grants scoped to one application.
type Role struct {
	ID          string    `json:"id"`
	AppID       string    `json:"appId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsSystem    bool      `json:"isSystem"`
	Permissions rbac.Set  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RoleInput carries the fields of a new role.
type RoleInput struct {
	Name        string
	Description string
	IsSystem    bool
	Permissions rbac.Set
}

// RoleUpdate is a partial update; nil fields are left unchanged.
type RoleUpdate struct {
	Name        *string
	Description *string
	IsSystem    *bool
	Permissions rbac.Set
}

func (r Role) clone() Role {
	out := r
	if r.Permissions != nil {
		out.Permissions = r.Permissions.Clone()
	} else {
		out.Permissions = rbac.NewSet()
	}
	return out
}

// apply merges u onto r.
func (r Role) apply(u RoleUpdate) Role {
	out := r.clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Description != nil {
		out.Description = *u.Description
	}
	if u.IsSystem != nil {
		out.IsSystem = *u.IsSystem
	}
	if u.Permissions != nil {
		out.Permissions = u.Permissions.Clone()
	}
	return out
}
