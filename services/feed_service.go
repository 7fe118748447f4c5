package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkUpAPI/internal/connection"
	"linkUpAPI/internal/post"
	"linkUpAPI/internal/user"
)

// FeedService answers visibility questions and composes the home feed. All
// checks resolve against the live connection graph, never a cached edge set.
type FeedService struct {
	db          *pgxpool.Pool
	connections *ConnectionService
}

func NewFeedService(db *pgxpool.Pool, connections *ConnectionService) *FeedService {
	return &FeedService{db: db, connections: connections}
}

// CanView decides whether viewerID may see p. viewerID is uuid.Nil for an
// unauthenticated viewer, who only ever sees public posts.
func (s *FeedService) CanView(ctx context.Context, viewerID uuid.UUID, p *post.Post) (bool, error) {
	if p.Visibility == post.VisibilityPublic {
		return true, nil
	}
	if viewerID == uuid.Nil {
		return false, nil
	}
	if viewerID == p.AuthorID {
		return true, nil
	}
	if p.Visibility == post.VisibilityConnections {
		status, err := s.connections.StatusBetween(ctx, viewerID, p.AuthorID)
		if err != nil {
			return false, err
		}
		return status != nil && *status == connection.StatusAccepted, nil
	}
	// private: author only, handled above.
	return false, nil
}

// CanViewProfile applies the owner's privacy level to a viewer.
func (s *FeedService) CanViewProfile(ctx context.Context, viewerID uuid.UUID, owner *user.User) (bool, error) {
	if viewerID == owner.ID {
		return true, nil
	}
	switch owner.PrivacyLevel {
	case user.PrivacyPublic:
		return true, nil
	case user.PrivacyConnectionsOnly:
		if viewerID == uuid.Nil {
			return false, nil
		}
		status, err := s.connections.StatusBetween(ctx, viewerID, owner.ID)
		if err != nil {
			return false, err
		}
		return status != nil && *status == connection.StatusAccepted, nil
	default:
		return false, nil
	}
}

// ComposeFeed returns one page of posts the viewer may see: their own posts,
// public posts from anyone, and connections-level posts from accepted
// connections. The visibility predicate runs in the query itself so a page is
// consistent with the graph at read time.
func (s *FeedService) ComposeFeed(ctx context.Context, viewerID uuid.UUID, page, pageSize int) (*post.FeedResponse, error) {
	connectedIDs, err := s.connections.ConnectedIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	connected := make([]string, len(connectedIDs))
	for i, id := range connectedIDs {
		connected[i] = id.String()
	}

	offset := (page - 1) * pageSize

	rows, err := s.db.Query(ctx, `
	SELECT p.id, p.author_id, p.content, p.visibility, p.created_at, p.updated_at,
	       u.display_name,
	       (SELECT COUNT(*) FROM post_reactions r WHERE r.post_id = p.id),
	       (SELECT COUNT(*) FROM post_comments c WHERE c.post_id = p.id)
	FROM posts p
	JOIN users u ON u.id = p.author_id
	WHERE p.visibility = 'public'
	   OR p.author_id = $1
	   OR (p.author_id = ANY($2::uuid[]) AND p.visibility = 'connections')
	ORDER BY p.created_at DESC, p.id DESC
	LIMIT $3 OFFSET $4
	`, viewerID, connected, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}
	defer rows.Close()

	items := []post.FeedItem{}
	for rows.Next() {
		var item post.FeedItem
		err := rows.Scan(
			&item.ID,
			&item.AuthorID,
			&item.Content,
			&item.Visibility,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.AuthorName,
			&item.ReactionCount,
			&item.CommentCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	return &post.FeedResponse{Items: items, Page: page, PageSize: pageSize}, nil
}

// SuggestionCandidates returns users the viewer is not already linked to in
// any direction, newest accounts first. Pending and blocked edges exclude a
// candidate the same as accepted ones.
func (s *FeedService) SuggestionCandidates(ctx context.Context, viewerID uuid.UUID, limit int) ([]user.Summary, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	rows, err := s.db.Query(ctx, `
	SELECT u.id, u.username, u.display_name
	FROM users u
	WHERE u.id <> $1
	  AND NOT EXISTS (
	      SELECT 1 FROM connections c
	      WHERE (c.requester_id = $1 AND c.requested_id = u.id)
	         OR (c.requested_id = $1 AND c.requester_id = u.id)
	  )
	ORDER BY u.created_at DESC, u.id DESC
	LIMIT $2
	`, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	candidates := []user.Summary{}
	for rows.Next() {
		var u user.Summary
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		candidates = append(candidates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read suggestions: %w", err)
	}
	return candidates, nil
}
