package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkUpAPI/internal/apperrors"
	"linkUpAPI/internal/notification"
)

// NotificationService records domain events as per-user notification rows.
// The calendar-day boundary for dedup is an injected location rather than
// the process's local zone, so every deployment agrees on what "today" is.
type NotificationService struct {
	db  *pgxpool.Pool
	loc *time.Location
	now func() time.Time
}

func NewNotificationService(db *pgxpool.Pool, loc *time.Location) *NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{db: db, loc: loc, now: time.Now}
}

const notificationColumns = `id, user_id, type, title, body, related_user_id, related_post_id, action_ref, is_read, created_at`

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	notif := &notification.Notification{}
	err := row.Scan(
		&notif.ID,
		&notif.UserID,
		&notif.Type,
		&notif.Title,
		&notif.Body,
		&notif.RelatedUserID,
		&notif.RelatedPostID,
		&notif.ActionRef,
		&notif.IsRead,
		&notif.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return notif, nil
}

// Emit records one event for a recipient, running against q so callers can
// keep it inside their own transaction. Self-notifications are suppressed
// here as a guard, not left to caller convention. Returns (nil, nil) when a
// dedup rule or the self guard suppressed the row.
func (s *NotificationService) Emit(ctx context.Context, q querier, req *notification.EmitRequest) (*notification.Notification, error) {
	if req.RecipientID == req.ActorID {
		return nil, nil
	}

	var actorName string
	var relatedUserID *uuid.UUID
	if req.ActorID != uuid.Nil {
		if err := q.QueryRow(ctx, `SELECT display_name FROM users WHERE id = $1`, req.ActorID).Scan(&actorName); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NotFound("acting user not found")
			}
			return nil, fmt.Errorf("failed to look up actor: %w", err)
		}
		actorID := req.ActorID
		relatedUserID = &actorID
	}

	title, body := notificationText(req.Type, actorName, req.Preview)
	dedupKey := s.dedupKey(req)

	query := `
	INSERT INTO notifications (user_id, type, title, body, related_user_id, related_post_id, action_ref, dedup_key)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (dedup_key) DO NOTHING
	RETURNING ` + notificationColumns

	notif, err := scanNotification(q.QueryRow(ctx, query,
		req.RecipientID, req.Type, title, body, relatedUserID, req.RelatedPostID, req.ActionRef, dedupKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Dedup rule fired: an equivalent row already exists today.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return notif, nil
}

// EmitStandalone is Emit outside any caller transaction.
func (s *NotificationService) EmitStandalone(ctx context.Context, req *notification.EmitRequest) (*notification.Notification, error) {
	return s.Emit(ctx, s.db, req)
}

// dedupKey returns the uniqueness key for types with a dedup rule, nil for
// everything else. profile_view collapses to one row per
// (recipient, viewer, calendar day in s.loc).
func (s *NotificationService) dedupKey(req *notification.EmitRequest) *string {
	if req.Type != notification.TypeProfileView {
		return nil
	}
	day := s.now().In(s.loc).Format("2006-01-02")
	key := fmt.Sprintf("profile_view:%s:%s:%s", req.RecipientID, req.ActorID, day)
	return &key
}

// List returns one page of the owner's notifications and then marks all of
// the owner's unread rows read, in the same transaction. The response shows
// the pre-mark read state; a notification arriving between the page query
// and the update is still inside the transaction's view and gets flipped
// with the rest.
func (s *NotificationService) List(ctx context.Context, ownerID uuid.UUID, page, pageSize int) (*notification.ListResponse, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	offset := (page - 1) * pageSize

	rows, err := tx.Query(ctx, `
	SELECT `+notificationColumns+`
	FROM notifications
	WHERE user_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2 OFFSET $3
	`, ownerID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications := []*notification.Notification{}
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, notif)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}

	var unreadCount, totalCount int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, ownerID).Scan(&unreadCount); err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, ownerID).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, ownerID); err != nil {
		return nil, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit notification list: %w", err)
	}

	return &notification.ListResponse{
		Notifications: notifications,
		UnreadCount:   unreadCount,
		TotalCount:    totalCount,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// MarkRead flips one notification to read. Marking an already-read row is a
// no-op success; marking someone else's row is refused.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, ownerID uuid.UUID) error {
	var rowOwner uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT user_id FROM notifications WHERE id = $1`, notificationID).Scan(&rowOwner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("notification not found")
		}
		return fmt.Errorf("failed to load notification: %w", err)
	}
	if rowOwner != ownerID {
		return apperrors.NotAuthorized("notification belongs to another user")
	}

	if _, err := s.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, notificationID); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead flips every unread row for the owner.
func (s *NotificationService) MarkAllRead(ctx context.Context, ownerID uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, ownerID); err != nil {
		return fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return nil
}

// UnreadCount returns the owner's unread row count.
func (s *NotificationService) UnreadCount(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// notificationText renders the stored title and body for an event type.
// Rendering happens at emit time because rows are immutable afterwards.
func notificationText(t notification.Type, actorName, preview string) (string, string) {
	switch t {
	case notification.TypeConnectionRequest:
		return fmt.Sprintf("%s sent you a connection request", actorName),
			fmt.Sprintf("%s would like to connect with you.", actorName)
	case notification.TypeConnectionAccepted:
		return fmt.Sprintf("%s accepted your connection request", actorName),
			fmt.Sprintf("You are now connected with %s.", actorName)
	case notification.TypePostLike:
		return fmt.Sprintf("%s reacted to your post", actorName),
			fmt.Sprintf("%s reacted to your post.", actorName)
	case notification.TypePostComment:
		return fmt.Sprintf("%s commented on your post", actorName),
			fmt.Sprintf("%s: %s", actorName, preview)
	case notification.TypeMessage:
		return fmt.Sprintf("New message from %s", actorName),
			fmt.Sprintf("%s: %s", actorName, preview)
	case notification.TypeProfileView:
		return fmt.Sprintf("%s viewed your profile", actorName),
			fmt.Sprintf("%s viewed your profile.", actorName)
	default:
		return "Notification", preview
	}
}
