package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/itchan-dev/community/internal/domain"
	internal_errors "github.com/itchan-dev/community/internal/errors"
)

// =========================================================================
// Public Methods (satisfy blacklist.Storage and the service storage interfaces)
// =========================================================================

// BlacklistItems returns every item ordered by pattern.
func (s *Storage) BlacklistItems(ctx context.Context) ([]domain.BlacklistItem, error) {
	ctx, cancel := s.read(ctx)
	defer cancel()
	return s.blacklistItems(ctx, s.db)
}

// SaveBlacklistItem inserts a pattern or changes the type of an existing one.
func (s *Storage) SaveBlacklistItem(ctx context.Context, item domain.BlacklistItem) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO blacklist_items(pattern, type) VALUES($1, $2)
			ON CONFLICT (pattern) DO UPDATE SET type = EXCLUDED.type
			RETURNING id`,
			item.Pattern, item.Type,
		).Scan(&id)
	})
	if err != nil {
		return -1, fmt.Errorf("failed to save blacklist item: %w", err)
	}
	return id, nil
}

func (s *Storage) DeleteBlacklistItem(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return deleteOne(ctx, tx, "Blacklist item not found", "DELETE FROM blacklist_items WHERE id = $1", id)
	})
}

// SaveUserWithRequest stores a request-listed registration. The user, its
// role and the token of the administrator links are committed together.
func (s *Storage) SaveUserWithRequest(ctx context.Context, user domain.User, role string, token domain.Token) (domain.UserId, error) {
	var id domain.UserId
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.saveUser(ctx, tx, user)
		if err != nil {
			return err
		}
		if err := s.assignRole(ctx, tx, id, role); err != nil {
			return err
		}
		return s.saveBlacklistRequest(ctx, tx, domain.BlacklistRequest{Token: token, UserId: id})
	})
	if err != nil {
		return -1, err
	}
	return id, nil
}

func (s *Storage) BlacklistRequest(ctx context.Context, token domain.Token) (domain.BlacklistRequest, error) {
	ctx, cancel := s.read(ctx)
	defer cancel()

	request := domain.BlacklistRequest{Token: token}
	err := s.db.QueryRowContext(ctx, "SELECT user_id FROM blacklist_requests WHERE token = $1", token).Scan(&request.UserId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.BlacklistRequest{}, internal_errors.NotFound("Request not found")
		}
		return domain.BlacklistRequest{}, fmt.Errorf("failed to query blacklist request: %w", err)
	}
	return request, nil
}

func (s *Storage) DeleteBlacklistRequest(ctx context.Context, token domain.Token) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return deleteOne(ctx, tx, "Request not found", "DELETE FROM blacklist_requests WHERE token = $1", token)
	})
}

// =========================================================================
// Internal Methods
// =========================================================================

func (s *Storage) blacklistItems(ctx context.Context, q Querier) ([]domain.BlacklistItem, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, pattern, type FROM blacklist_items ORDER BY pattern")
	if err != nil {
		return nil, fmt.Errorf("failed to query blacklist items: %w", err)
	}
	defer rows.Close()

	var items []domain.BlacklistItem
	for rows.Next() {
		var item domain.BlacklistItem
		if err := rows.Scan(&item.Id, &item.Pattern, &item.Type); err != nil {
			return nil, fmt.Errorf("failed to scan blacklist item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blacklist items: %w", err)
	}
	return items, nil
}

func (s *Storage) saveBlacklistRequest(ctx context.Context, q Querier, request domain.BlacklistRequest) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO blacklist_requests(token, user_id) VALUES($1, $2)",
		request.Token, request.UserId,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &internal_errors.ErrorWithStatusCode{Message: "Request already exists", StatusCode: http.StatusConflict}
		}
		return fmt.Errorf("failed to insert blacklist request: %w", err)
	}
	return nil
}

// deleteOne executes a delete and reports notFound when nothing was removed.
func deleteOne(ctx context.Context, q Querier, notFound string, query string, args ...any) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	rowsDeleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsDeleted == 0 {
		return internal_errors.NotFound(notFound)
	}
	return nil
}
