package connection

import (
	"time"

	"github.com/google/uuid"

	"linkUpAPI/internal/user"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusBlocked  Status = "blocked"
)

// Connection is a single edge between two users. At most one row exists per
// unordered pair; direction only records who initiated the current state.
type Connection struct {
	ID          uuid.UUID `json:"id"`
	RequesterID uuid.UUID `json:"requester_id"`
	RequestedID uuid.UUID `json:"requested_id"`
	Status      Status    `json:"status"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RequestConnectionRequest struct {
	RequestedID string `json:"requested_id"`
	Message     string `json:"message,omitempty"`
}

type RespondConnectionRequest struct {
	Action string `json:"action"` // "accept" or "reject"
}

// NetworkEntry pairs a user summary with the edge that links them to the
// requesting user.
type NetworkEntry struct {
	User       user.Summary `json:"user"`
	Connection *Connection  `json:"connection"`
}

type NetworkResponse struct {
	Connections     []NetworkEntry `json:"connections"`
	PendingReceived []NetworkEntry `json:"pending_received"`
	PendingSent     []NetworkEntry `json:"pending_sent"`
}
