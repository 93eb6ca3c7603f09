package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/eduflow/eduflow-api/internal/model"
)

// RoleRepo provides read access to the `roles` table.  The role set is a
// fixed enum seeded by migration; there is no write path.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// GetByName fetches a role by its lower-cased name.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (*model.Role, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name FROM roles WHERE name=? LIMIT 1", name).
		Scan(&role.ID, &role.Name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// List returns all roles ordered by id.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name FROM roles ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
