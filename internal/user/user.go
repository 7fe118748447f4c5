package user

import (
	"time"

	"github.com/google/uuid"
)

type PrivacyLevel string

const (
	PrivacyPublic          PrivacyLevel = "public"
	PrivacyConnectionsOnly PrivacyLevel = "connections_only"
	PrivacyPrivate         PrivacyLevel = "private"
)

// User is the identity reference the engine works with. Accounts are owned by
// the auth layer; we keep the columns the core needs for display names and
// profile gating.
type User struct {
	ID           uuid.UUID    `json:"id"`
	ClerkID      string       `json:"clerkId"`
	Username     string       `json:"username"`
	DisplayName  string       `json:"displayName"`
	Headline     string       `json:"headline,omitempty"`
	PrivacyLevel PrivacyLevel `json:"privacyLevel"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Summary is the compact shape embedded in network lists, inbox entries and
// suggestions.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
}

type EnsureUserRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Headline    string `json:"headline,omitempty"`
}

type UpdatePrivacyRequest struct {
	PrivacyLevel PrivacyLevel `json:"privacyLevel"`
}

// ProfileResponse is what a viewer gets back for someone else's profile page.
type ProfileResponse struct {
	User             *User   `json:"user"`
	ConnectionStatus *string `json:"connectionStatus,omitempty"`
	IsOwnProfile     bool    `json:"isOwnProfile"`
}
