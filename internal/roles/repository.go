package roles

import (
	"context"
	"fmt"
	"sync"

	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Repository persists the roles of every application. Deleted role ids stay
// retired so IDTaken keeps reporting them.
type Repository interface {
	ListRoles(ctx context.Context, appID string) ([]Role, error)
	GetRole(ctx context.Context, appID, roleID string) (Role, error)
	IDTaken(ctx context.Context, appID, roleID string) (bool, error)
	InsertRole(ctx context.Context, role Role) error
	UpdateRole(ctx context.Context, role Role) error
	DeleteRole(ctx context.Context, appID, roleID string) error
}

var _ Repository = (*MemoryRepository)(nil)

type appRoles struct {
	order   []string
	roles   map[string]Role
	retired map[string]struct{}
}

// MemoryRepository keeps roles in process memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	apps map[string]*appRoles
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{apps: make(map[string]*appRoles)}
}

// ListRoles returns roles in insertion order.
func (m *MemoryRepository) ListRoles(_ context.Context, appID string) ([]Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.apps[appID]
	if !ok {
		return []Role{}, nil
	}
	out := make([]Role, 0, len(set.order))
	for _, id := range set.order {
		out = append(out, set.roles[id].clone())
	}
	return out, nil
}

// GetRole fetches a role by id.
func (m *MemoryRepository) GetRole(_ context.Context, appID, roleID string) (Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if set, ok := m.apps[appID]; ok {
		if role, ok := set.roles[roleID]; ok {
			return role.clone(), nil
		}
	}
	return Role{}, notFoundRole(appID, roleID)
}

// IDTaken reports whether roleID is live or was used by a deleted role.
func (m *MemoryRepository) IDTaken(_ context.Context, appID, roleID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.apps[appID]
	if !ok {
		return false, nil
	}
	if _, ok := set.roles[roleID]; ok {
		return true, nil
	}
	_, retired := set.retired[roleID]
	return retired, nil
}

// InsertRole appends a new role.
func (m *MemoryRepository) InsertRole(_ context.Context, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.apps[role.AppID]
	if !ok {
		set = &appRoles{roles: make(map[string]Role), retired: make(map[string]struct{})}
		m.apps[role.AppID] = set
	}
	if _, exists := set.roles[role.ID]; exists {
		return fmt.Errorf("roles: role %s/%s exists: %w", role.AppID, role.ID, shared.ErrConflict)
	}
	if _, retired := set.retired[role.ID]; retired {
		return fmt.Errorf("roles: role id %s/%s retired: %w", role.AppID, role.ID, shared.ErrConflict)
	}
	set.roles[role.ID] = role.clone()
	set.order = append(set.order, role.ID)
	return nil
}

// UpdateRole replaces an existing role.
func (m *MemoryRepository) UpdateRole(_ context.Context, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.apps[role.AppID]
	if !ok {
		return notFoundRole(role.AppID, role.ID)
	}
	if _, exists := set.roles[role.ID]; !exists {
		return notFoundRole(role.AppID, role.ID)
	}
	set.roles[role.ID] = role.clone()
	return nil
}

// DeleteRole removes a role and retires its id.
func (m *MemoryRepository) DeleteRole(_ context.Context, appID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.apps[appID]
	if !ok {
		return notFoundRole(appID, roleID)
	}
	if _, exists := set.roles[roleID]; !exists {
		return notFoundRole(appID, roleID)
	}
	delete(set.roles, roleID)
	set.retired[roleID] = struct{}{}
	for i, id := range set.order {
		if id == roleID {
			set.order = append(set.order[:i:i], set.order[i+1:]...)
			break
		}
	}
	return nil
}

func notFoundRole(appID, roleID string) error {
	return fmt.Errorf("roles: role %s/%s: %w", appID, roleID, shared.ErrNotFound)
}
