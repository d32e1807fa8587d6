package roles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS rbac_roles (
	app_id      TEXT        NOT NULL,
	id          TEXT        NOT NULL,
	seq         BIGSERIAL,
	name        TEXT        NOT NULL,
	description TEXT        NOT NULL DEFAULT '',
	is_system   BOOLEAN     NOT NULL DEFAULT FALSE,
	permissions TEXT[]      NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	deleted_at  TIMESTAMPTZ,
	PRIMARY KEY (app_id, id)
);
CREATE INDEX IF NOT EXISTS rbac_roles_live_idx ON rbac_roles (app_id, seq) WHERE deleted_at IS NULL;
`

// migrateLockKey is the advisory lock held while the schema is created.
const migrateLockKey int64 = 0x726261635f726f6c

const roleColumns = `app_id, id, name, description, is_system, permissions, created_at, updated_at`

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository stores roles in PostgreSQL. Deletes are soft so that
// retired ids are never handed out again.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the roles table when missing. Concurrent callers are
// serialised by an advisory lock.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	err := db.WithTx(ctx, r.pool, migrateLockKey, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schemaSQL)
		return err
	})
	if err != nil {
		return fmt.Errorf("roles: migrate: %w", err)
	}
	return nil
}

// ListRoles returns live roles in insertion order.
func (r *PostgresRepository) ListRoles(ctx context.Context, appID string) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM rbac_roles WHERE app_id = $1 AND deleted_at IS NULL ORDER BY seq`, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRole fetches a live role.
func (r *PostgresRepository) GetRole(ctx context.Context, appID, roleID string) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM rbac_roles WHERE app_id = $1 AND id = $2 AND deleted_at IS NULL`, appID, roleID)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, notFoundRole(appID, roleID)
		}
		return Role{}, err
	}
	return role, nil
}

// IDTaken reports whether roleID exists, deleted or not.
func (r *PostgresRepository) IDTaken(ctx context.Context, appID, roleID string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rbac_roles WHERE app_id = $1 AND id = $2)`, appID, roleID).Scan(&taken)
	return taken, err
}

// InsertRole inserts a new role.
func (r *PostgresRepository) InsertRole(ctx context.Context, role Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rbac_roles (`+roleColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		role.AppID, role.ID, role.Name, role.Description, role.IsSystem, role.Permissions.Strings(), role.CreatedAt, role.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("roles: role id %s/%s taken: %w", role.AppID, role.ID, shared.ErrConflict)
		}
		return err
	}
	return nil
}

// UpdateRole overwrites the mutable fields of a live role.
func (r *PostgresRepository) UpdateRole(ctx context.Context, role Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rbac_roles SET name = $3, description = $4, is_system = $5, permissions = $6, updated_at = $7
		 WHERE app_id = $1 AND id = $2 AND deleted_at IS NULL`,
		role.AppID, role.ID, role.Name, role.Description, role.IsSystem, role.Permissions.Strings(), role.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFoundRole(role.AppID, role.ID)
	}
	return nil
}

// DeleteRole soft-deletes a live role.
func (r *PostgresRepository) DeleteRole(ctx context.Context, appID, roleID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rbac_roles SET deleted_at = $3 WHERE app_id = $1 AND id = $2 AND deleted_at IS NULL`,
		appID, roleID, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFoundRole(appID, roleID)
	}
	return nil
}

func scanRole(row pgx.Row) (Role, error) {
	var (
		role  Role
		perms []string
	)
	if err := row.Scan(&role.AppID, &role.ID, &role.Name, &role.Description, &role.IsSystem, &perms, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	// Rows written by this repository only hold well-formed grants.
	role.Permissions, _ = rbac.ParseSet(perms)
	return role, nil
}
