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
	"linkUpAPI/internal/notification"
	"linkUpAPI/internal/post"
	"linkUpAPI/utils"
)

type PostService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
}

func NewPostService(db *pgxpool.Pool, notifications *NotificationService) *PostService {
	return &PostService{db: db, notifications: notifications}
}

const postColumns = `id, author_id, content, visibility, created_at, updated_at`

func scanPost(row pgx.Row) (*post.Post, error) {
	p := &post.Post{}
	err := row.Scan(&p.ID, &p.AuthorID, &p.Content, &p.Visibility, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostService) CreatePost(ctx context.Context, authorID uuid.UUID, req *post.CreatePostRequest) (*post.Post, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperrors.InvalidState("post content is required")
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = post.VisibilityPublic
	}
	switch visibility {
	case post.VisibilityPublic, post.VisibilityConnections, post.VisibilityPrivate:
	default:
		return nil, apperrors.InvalidState("unknown visibility level")
	}

	p, err := scanPost(s.db.QueryRow(ctx, `
	INSERT INTO posts (author_id, content, visibility)
	VALUES ($1, $2, $3)
	RETURNING `+postColumns, authorID, content, visibility))
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return p, nil
}

func (s *PostService) GetPost(ctx context.Context, postID int64) (*post.Post, error) {
	p, err := scanPost(s.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, postID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("post not found")
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

// React toggles the user's reaction on a post. Reacting again with the same
// type removes it; a different type updates the existing row in place. Only a
// brand new reaction notifies the author, so toggling cannot spam them.
func (s *PostService) React(ctx context.Context, postID int64, userID uuid.UUID, rtype post.ReactionType) (*post.ReactResponse, error) {
	if !post.ValidReaction(rtype) {
		return nil, apperrors.InvalidState("unknown reaction type")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var authorID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT author_id FROM posts WHERE id = $1`, postID).Scan(&authorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("post not found")
		}
		return nil, fmt.Errorf("failed to load post: %w", err)
	}

	var existing post.ReactionType
	err = tx.QueryRow(ctx, `
	SELECT reaction_type FROM post_reactions
	WHERE post_id = $1 AND user_id = $2
	FOR UPDATE
	`, postID, userID).Scan(&existing)

	var action string
	switch {
	case err == nil && existing == rtype:
		if _, err := tx.Exec(ctx, `DELETE FROM post_reactions WHERE post_id = $1 AND user_id = $2`, postID, userID); err != nil {
			return nil, fmt.Errorf("failed to remove reaction: %w", err)
		}
		action = "removed"
	case err == nil:
		if _, err := tx.Exec(ctx, `
		UPDATE post_reactions SET reaction_type = $1
		WHERE post_id = $2 AND user_id = $3
		`, rtype, postID, userID); err != nil {
			return nil, fmt.Errorf("failed to update reaction: %w", err)
		}
		action = "updated"
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, `
		INSERT INTO post_reactions (post_id, user_id, reaction_type)
		VALUES ($1, $2, $3)
		`, postID, userID, rtype); err != nil {
			return nil, fmt.Errorf("failed to add reaction: %w", err)
		}
		action = "added"
		if _, err := s.notifications.Emit(ctx, tx, &notification.EmitRequest{
			RecipientID:   authorID,
			ActorID:       userID,
			Type:          notification.TypePostLike,
			RelatedPostID: &postID,
			ActionRef:     fmt.Sprintf("/posts/%d", postID),
		}); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to load reaction: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM post_reactions WHERE post_id = $1`, postID).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reaction: %w", err)
	}
	return &post.ReactResponse{Action: action, ReactionCount: count}, nil
}

// AddComment stores a comment and notifies the author with a short preview.
func (s *PostService) AddComment(ctx context.Context, postID int64, userID uuid.UUID, content string) (*post.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.InvalidState("comment content is required")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var authorID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT author_id FROM posts WHERE id = $1`, postID).Scan(&authorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("post not found")
		}
		return nil, fmt.Errorf("failed to load post: %w", err)
	}

	comment := &post.Comment{}
	err = tx.QueryRow(ctx, `
	INSERT INTO post_comments (post_id, user_id, content)
	VALUES ($1, $2, $3)
	RETURNING id, post_id, user_id, content, created_at
	`, postID, userID, content).Scan(&comment.ID, &comment.PostID, &comment.UserID, &comment.Content, &comment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if _, err := s.notifications.Emit(ctx, tx, &notification.EmitRequest{
		RecipientID:   authorID,
		ActorID:       userID,
		Type:          notification.TypePostComment,
		RelatedPostID: &postID,
		ActionRef:     fmt.Sprintf("/posts/%d", postID),
		Preview:       utils.Preview(content, 50),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit comment: %w", err)
	}
	return comment, nil
}

// ListComments returns a post's comments oldest first.
func (s *PostService) ListComments(ctx context.Context, postID int64) ([]*post.Comment, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, post_id, user_id, content, created_at
	FROM post_comments
	WHERE post_id = $1
	ORDER BY created_at ASC, id ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*post.Comment{}
	for rows.Next() {
		c := &post.Comment{}
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read comments: %w", err)
	}
	return comments, nil
}
