package post

import (
	"time"

	"github.com/google/uuid"
)

type Visibility string

const (
	VisibilityPublic      Visibility = "public"
	VisibilityConnections Visibility = "connections"
	VisibilityPrivate     Visibility = "private"
)

type ReactionType string

const (
	ReactionLike       ReactionType = "like"
	ReactionLove       ReactionType = "love"
	ReactionCelebrate  ReactionType = "celebrate"
	ReactionSupport    ReactionType = "support"
	ReactionFunny      ReactionType = "funny"
	ReactionInsightful ReactionType = "insightful"
)

func ValidReaction(r ReactionType) bool {
	switch r {
	case ReactionLike, ReactionLove, ReactionCelebrate, ReactionSupport, ReactionFunny, ReactionInsightful:
		return true
	}
	return false
}

// Post ids are sequential so the feed's (created_at, id) descending order is a
// total order that stays stable under concurrent inserts.
type Post struct {
	ID         int64      `json:"id"`
	AuthorID   uuid.UUID  `json:"author_id"`
	Content    string     `json:"content"`
	Visibility Visibility `json:"visibility"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type Reaction struct {
	ID        int64        `json:"id"`
	PostID    int64        `json:"post_id"`
	UserID    uuid.UUID    `json:"user_id"`
	Type      ReactionType `json:"reaction_type"`
	CreatedAt time.Time    `json:"created_at"`
}

type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    uuid.UUID `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type CreatePostRequest struct {
	Content    string     `json:"content"`
	Visibility Visibility `json:"visibility"`
}

type ReactRequest struct {
	ReactionType ReactionType `json:"reaction_type"`
}

// ReactResponse reports what the toggle did: "added", "updated" or "removed".
type ReactResponse struct {
	Action        string `json:"action"`
	ReactionCount int    `json:"reaction_count"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

type FeedItem struct {
	Post
	AuthorName    string `json:"author_name"`
	ReactionCount int    `json:"reaction_count"`
	CommentCount  int    `json:"comment_count"`
}

type FeedResponse struct {
	Items    []FeedItem `json:"items"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}
