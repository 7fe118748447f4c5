package conversation

import (
	"time"

	"github.com/google/uuid"

	"linkUpAPI/internal/user"
)

type Kind string

const (
	KindPrivate Kind = "private"
	KindGroup   Kind = "group"
)

// PairKey builds the order-independent key that makes private conversations
// unique per participant pair. Stored on the row so the database can enforce
// at-most-one under concurrent first messages.
func PairKey(a, b uuid.UUID) string {
	if a.String() < b.String() {
		return a.String() + ":" + b.String()
	}
	return b.String() + ":" + a.String()
}

type Conversation struct {
	ID             uuid.UUID   `json:"id"`
	Kind           Kind        `json:"kind"`
	CreatedBy      uuid.UUID   `json:"created_by"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Message ids are sequential so ascending (created_at, id) is a stable total
// order for chat history.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        string    `json:"content"`
	IsEdited       bool      `json:"is_edited"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type SendMessageRequest struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

// InboxEntry mirrors the inbox page: the thread, its latest message, who else
// is in it, and the unread approximation (messages not sent by the viewer;
// there is no per-recipient read cursor).
type InboxEntry struct {
	Conversation      *Conversation  `json:"conversation"`
	LatestMessage     *Message       `json:"latest_message,omitempty"`
	OtherParticipants []user.Summary `json:"other_participants"`
	UnreadCount       int            `json:"unread_count"`
}

type MessagesPage struct {
	Messages []*Message `json:"messages"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}
