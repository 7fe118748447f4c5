package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkUpAPI/internal/apperrors"
	"linkUpAPI/internal/user"
)

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

const userColumns = `id, clerk_id, username, display_name, headline, privacy_level, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.ClerkID,
		&u.Username,
		&u.DisplayName,
		&u.Headline,
		&u.PrivacyLevel,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureUser upserts the row for an authenticated identity. The auth provider
// owns the account; this keeps our copy of the display columns current.
func (s *UserService) EnsureUser(ctx context.Context, clerkID string, req *user.EnsureUserRequest) (*user.User, error) {
	username := strings.TrimSpace(req.Username)
	displayName := strings.TrimSpace(req.DisplayName)
	if username == "" {
		return nil, apperrors.InvalidState("username is required")
	}
	if displayName == "" {
		displayName = username
	}

	query := `
	INSERT INTO users (clerk_id, username, display_name, headline)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (clerk_id) DO UPDATE
	SET username = EXCLUDED.username,
	    display_name = EXCLUDED.display_name,
	    headline = EXCLUDED.headline,
	    updated_at = NOW()
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, query, clerkID, username, displayName, req.Headline))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.DuplicateEdge("username is already taken")
		}
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE clerk_id = $1`, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *UserService) UpdatePrivacy(ctx context.Context, userID uuid.UUID, level user.PrivacyLevel) (*user.User, error) {
	switch level {
	case user.PrivacyPublic, user.PrivacyConnectionsOnly, user.PrivacyPrivate:
	default:
		return nil, apperrors.InvalidState("unknown privacy level")
	}

	u, err := scanUser(s.db.QueryRow(ctx, `
	UPDATE users SET privacy_level = $1, updated_at = NOW()
	WHERE id = $2
	RETURNING `+userColumns, level, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to update privacy: %w", err)
	}
	return u, nil
}

// SearchUsers matches username or display name, excluding the searcher.
func (s *UserService) SearchUsers(ctx context.Context, searcherID uuid.UUID, query string, limit int) ([]user.Summary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []user.Summary{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	pattern := "%" + query + "%"
	rows, err := s.db.Query(ctx, `
	SELECT id, username, display_name
	FROM users
	WHERE (username ILIKE $1 OR display_name ILIKE $1) AND id <> $2
	ORDER BY username
	LIMIT $3
	`, pattern, searcherID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	results := []user.Summary{}
	for rows.Next() {
		var u user.Summary
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		results = append(results, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return results, nil
}
