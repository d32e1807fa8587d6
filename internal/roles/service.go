package roles

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-rbac/internal/catalog"
	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// maxIDAttempts bounds id generation retries against collisions.
const maxIDAttempts = 8

// Applications reports which application ids exist.
type Applications interface {
	HasApplication(appID string) bool
}

// MutationRecorder observes successful role mutations.
type MutationRecorder interface {
	ObserveRoleMutation(appID, op string)
}

// Service is the role registry: CRUD over the roles of each application.
// Mutations of one application are serialised through the Locker; reads are
// not locked.
type Service struct {
	apps     Applications
	repo     Repository
	engine   *rbac.Engine
	locker   Locker
	logger   *slog.Logger
	recorder MutationRecorder
	newID    func() string
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLocker replaces the default in-process locker.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithLogger sets the logger used for mutation records.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRecorder installs a mutation recorder.
func WithRecorder(r MutationRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithIDGenerator overrides role id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithClock overrides the timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

// NewService builds Service instance.
func NewService(apps Applications, repo Repository, engine *rbac.Engine, opts ...Option) *Service {
	s := &Service{
		apps:   apps,
		repo:   repo,
		engine: engine,
		locker: NewKeyedMutex(),
		logger: slog.Default(),
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListRoles returns the roles of an application.
func (s *Service) ListRoles(ctx context.Context, appID string) ([]Role, error) {
	if err := s.requireApp(appID); err != nil {
		return nil, err
	}
	return s.repo.ListRoles(ctx, appID)
}

// GetRole returns one role.
func (s *Service) GetRole(ctx context.Context, appID, roleID string) (Role, error) {
	if err := s.requireApp(appID); err != nil {
		return Role{}, err
	}
	return s.repo.GetRole(ctx, appID, roleID)
}

// AddRole creates a role with a freshly assigned id. Grants are stored as
// given; references to unknown modules simply expand to nothing.
func (s *Service) AddRole(ctx context.Context, appID string, in RoleInput) (Role, error) {
	if err := s.requireApp(appID); err != nil {
		return Role{}, err
	}
	unlock, err := s.locker.Lock(ctx, appID)
	if err != nil {
		return Role{}, err
	}
	defer unlock()

	id, err := s.freshID(ctx, appID)
	if err != nil {
		return Role{}, err
	}
	now := s.now()
	role := Role{
		ID:          id,
		AppID:       appID,
		Name:        in.Name,
		Description: in.Description,
		IsSystem:    in.IsSystem,
		Permissions: in.Permissions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	role = role.clone()
	if err := s.repo.InsertRole(ctx, role); err != nil {
		return Role{}, err
	}
	s.observe(appID, role.ID, "add")
	return role, nil
}

// Precondition vets the stored role before a mutation is applied. It runs
// while the application's lock is held; a non-nil error aborts the mutation.
type Precondition func(current Role) error

// UpdateRole merges the non-nil fields of u onto an existing role.
func (s *Service) UpdateRole(ctx context.Context, appID, roleID string, u RoleUpdate) (Role, error) {
	return s.UpdateRoleIf(ctx, appID, roleID, u, nil)
}

// UpdateRoleIf is UpdateRole guarded by check, evaluated against the role as
// stored at the time of the write.
func (s *Service) UpdateRoleIf(ctx context.Context, appID, roleID string, u RoleUpdate, check Precondition) (Role, error) {
	if err := s.requireApp(appID); err != nil {
		return Role{}, err
	}
	unlock, err := s.locker.Lock(ctx, appID)
	if err != nil {
		return Role{}, err
	}
	defer unlock()

	current, err := s.repo.GetRole(ctx, appID, roleID)
	if err != nil {
		return Role{}, err
	}
	if check != nil {
		if err := check(current); err != nil {
			return Role{}, err
		}
	}
	updated := current.apply(u)
	updated.UpdatedAt = s.now()
	if err := s.repo.UpdateRole(ctx, updated); err != nil {
		return Role{}, err
	}
	s.observe(appID, roleID, "update")
	return updated, nil
}

// DeleteRole removes a role. Its id is never reassigned within the application.
func (s *Service) DeleteRole(ctx context.Context, appID, roleID string) error {
	return s.DeleteRoleIf(ctx, appID, roleID, nil)
}

// DeleteRoleIf is DeleteRole guarded by check.
func (s *Service) DeleteRoleIf(ctx context.Context, appID, roleID string, check Precondition) error {
	if err := s.requireApp(appID); err != nil {
		return err
	}
	unlock, err := s.locker.Lock(ctx, appID)
	if err != nil {
		return err
	}
	defer unlock()

	if check != nil {
		current, err := s.repo.GetRole(ctx, appID, roleID)
		if err != nil {
			return err
		}
		if err := check(current); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteRole(ctx, appID, roleID); err != nil {
		return err
	}
	s.observe(appID, roleID, "delete")
	return nil
}

// Seed installs catalog seed roles whose ids were never used in the
// application. It returns the number of roles inserted.
func (s *Service) Seed(ctx context.Context, appID string, seeds []catalog.SeedRole) (int, error) {
	if err := s.requireApp(appID); err != nil {
		return 0, err
	}
	unlock, err := s.locker.Lock(ctx, appID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	inserted := 0
	for _, seed := range seeds {
		taken, err := s.repo.IDTaken(ctx, appID, seed.ID)
		if err != nil {
			return inserted, err
		}
		if taken {
			continue
		}
		perms, invalid := rbac.ParseSet(seed.Permissions)
		if len(invalid) > 0 {
			return inserted, fmt.Errorf("roles: seed %s/%s: malformed grants %q: %w", appID, seed.ID, invalid, shared.ErrValidation)
		}
		now := s.now()
		role := Role{
			ID:          seed.ID,
			AppID:       appID,
			Name:        seed.Name,
			Description: seed.Description,
			IsSystem:    seed.IsSystem,
			Permissions: perms,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.InsertRole(ctx, role); err != nil {
			return inserted, err
		}
		inserted++
	}
	if inserted > 0 {
		s.logger.Info("seeded roles", slog.String("app", appID), slog.Int("count", inserted))
	}
	return inserted, nil
}

// SeedCatalog seeds every application of c.
func (s *Service) SeedCatalog(ctx context.Context, c *catalog.Catalog) error {
	for _, app := range c.ListApplications() {
		if _, err := s.Seed(ctx, app.ID, app.SeedRoles); err != nil {
			return err
		}
	}
	return nil
}

// EffectivePermissions expands the grants of a role against the catalog.
func (s *Service) EffectivePermissions(ctx context.Context, appID, roleID string) (rbac.Set, error) {
	role, err := s.GetRole(ctx, appID, roleID)
	if err != nil {
		return nil, err
	}
	return s.engine.Expand(appID, role.Permissions), nil
}

// Can reports whether a role grants permission.
func (s *Service) Can(ctx context.Context, appID, roleID, permission string) (bool, error) {
	role, err := s.GetRole(ctx, appID, roleID)
	if err != nil {
		return false, err
	}
	return s.engine.HasPermission(appID, role.Permissions, permission), nil
}

// StaleGrants lists the grants of a role that reference nothing in the catalog.
func (s *Service) StaleGrants(ctx context.Context, appID, roleID string) ([]rbac.StaleGrant, error) {
	role, err := s.GetRole(ctx, appID, roleID)
	if err != nil {
		return nil, err
	}
	return s.engine.StaleGrants(appID, role.Permissions), nil
}

func (s *Service) requireApp(appID string) error {
	if !s.apps.HasApplication(appID) {
		return fmt.Errorf("roles: application %s: %w", appID, shared.ErrNotFound)
	}
	return nil
}

func (s *Service) freshID(ctx context.Context, appID string) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		taken, err := s.repo.IDTaken(ctx, appID, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("roles: no free role id in %s after %d attempts: %w", appID, maxIDAttempts, shared.ErrConflict)
}

func (s *Service) observe(appID, roleID, op string) {
	s.logger.Info("role "+op, slog.String("app", appID), slog.String("role", roleID))
	if s.recorder != nil {
		s.recorder.ObserveRoleMutation(appID, op)
	}
}
