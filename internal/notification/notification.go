package notification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeConnectionRequest  Type = "connection_request"
	TypeConnectionAccepted Type = "connection_accepted"
	TypePostLike           Type = "post_like"
	TypePostComment        Type = "post_comment"
	TypeMessage            Type = "message"
	TypeProfileView        Type = "profile_view"
	TypeSystem             Type = "system"
)

// Notification rows are owned by the recipient. Content is immutable after
// creation; only the read flag ever changes.
type Notification struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Type          Type       `json:"type"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	RelatedUserID *uuid.UUID `json:"related_user_id,omitempty"`
	RelatedPostID *int64     `json:"related_post_id,omitempty"`
	ActionRef     string     `json:"action_ref,omitempty"`
	IsRead        bool       `json:"is_read"`
	CreatedAt     time.Time  `json:"created_at"`
}

// EmitRequest describes a domain event to record for a recipient. ActorID is
// the user whose action produced the event (uuid.Nil for system events);
// Preview carries a short excerpt for message notifications.
type EmitRequest struct {
	RecipientID   uuid.UUID
	ActorID       uuid.UUID
	Type          Type
	RelatedPostID *int64
	ActionRef     string
	Preview       string
}

type ListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
	TotalCount    int             `json:"total_count"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
}
