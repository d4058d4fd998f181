package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/itchan-dev/community/internal/domain"
	internal_errors "github.com/itchan-dev/community/internal/errors"
)

// SaveRole creates the role or returns the id of the existing one.
func (s *Storage) SaveRole(ctx context.Context, role domain.Role) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			`INSERT INTO roles(name, system) VALUES($1, $2)
			ON CONFLICT (name, system) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`,
			role.Name, role.System,
		).Scan(&id)
	})
	if err != nil {
		return -1, fmt.Errorf("failed to insert role: %w", err)
	}
	return id, nil
}

func (s *Storage) Roles(ctx context.Context, userId domain.UserId) ([]domain.Role, error) {
	ctx, cancel := s.read(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.system
		FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.Id, &role.Name, &role.System); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// assignRole links the user with the role named name.
func (s *Storage) assignRole(ctx context.Context, q Querier, userId domain.UserId, name string) error {
	var roleId int64
	err := q.QueryRowContext(ctx, "SELECT id FROM roles WHERE name = $1 ORDER BY id LIMIT 1", name).Scan(&roleId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return internal_errors.NotFound(fmt.Sprintf("Role %q not found", name))
		}
		return fmt.Errorf("failed to query role: %w", err)
	}

	_, err = q.ExecContext(ctx, "INSERT INTO user_roles(user_id, role_id) VALUES($1, $2)", userId, roleId)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}
