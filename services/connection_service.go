package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkUpAPI/internal/apperrors"
	"linkUpAPI/internal/connection"
	"linkUpAPI/internal/notification"
)

// ConnectionService owns the connection graph: one row per unordered user
// pair, whatever its current status. The connections_pair_key unique index
// backs the at-most-one-edge invariant under concurrent requests.
type ConnectionService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
}

func NewConnectionService(db *pgxpool.Pool, notifications *NotificationService) *ConnectionService {
	return &ConnectionService{db: db, notifications: notifications}
}

const connectionColumns = `id, requester_id, requested_id, status, message, created_at, updated_at`

func scanConnection(row pgx.Row) (*connection.Connection, error) {
	conn := &connection.Connection{}
	err := row.Scan(
		&conn.ID,
		&conn.RequesterID,
		&conn.RequestedID,
		&conn.Status,
		&conn.Message,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// RequestConnection creates a pending edge and notifies the requested user.
// Both writes commit together; the loser of a simultaneous request race from
// the other side gets a duplicate-edge error instead of a second row.
func (s *ConnectionService) RequestConnection(ctx context.Context, requesterID, requestedID uuid.UUID, message string) (*connection.Connection, error) {
	if requesterID == requestedID {
		return nil, apperrors.SelfReference("cannot send a connection request to yourself")
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, requestedID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check requested user: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("requested user not found")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
	INSERT INTO connections (requester_id, requested_id, status, message)
	VALUES ($1, $2, 'pending', $3)
	RETURNING ` + connectionColumns

	conn, err := scanConnection(tx.QueryRow(ctx, query, requesterID, requestedID, message))
	if err != nil {
		if isUniqueViolation(err) {
			status, statusErr := s.StatusBetween(ctx, requesterID, requestedID)
			if statusErr != nil || status == nil {
				return nil, apperrors.DuplicateEdge("a connection already exists for this pair")
			}
			return nil, apperrors.DuplicateEdge(fmt.Sprintf("a connection already exists for this pair (status %s)", *status))
		}
		return nil, fmt.Errorf("failed to create connection request: %w", err)
	}

	_, err = s.notifications.Emit(ctx, tx, &notification.EmitRequest{
		RecipientID: requestedID,
		ActorID:     requesterID,
		Type:        notification.TypeConnectionRequest,
		ActionRef:   "/connections/network",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to notify requested user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit connection request: %w", err)
	}

	return conn, nil
}

// RespondToConnection lets the requested party accept or reject a pending
// request. Status is re-checked under a row lock in the same transaction
// that applies the transition, so a double accept or accept-after-cancel
// fails instead of applying twice.
func (s *ConnectionService) RespondToConnection(ctx context.Context, connectionID, actorID uuid.UUID, action string) (*connection.Connection, error) {
	var newStatus connection.Status
	switch action {
	case "accept":
		newStatus = connection.StatusAccepted
	case "reject":
		newStatus = connection.StatusRejected
	default:
		return nil, apperrors.InvalidState(fmt.Sprintf("unknown action %q", action))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanConnection(tx.QueryRow(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE id = $1 FOR UPDATE`, connectionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("connection request not found")
		}
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}

	if current.RequestedID != actorID {
		return nil, apperrors.NotAuthorized("only the requested user can respond to this request")
	}
	if current.Status != connection.StatusPending {
		return nil, apperrors.InvalidState(fmt.Sprintf("connection request already processed (status %s)", current.Status))
	}

	conn, err := scanConnection(tx.QueryRow(ctx, `
	UPDATE connections
	SET status = $2, updated_at = NOW()
	WHERE id = $1
	RETURNING `+connectionColumns, connectionID, newStatus))
	if err != nil {
		return nil, fmt.Errorf("failed to update connection: %w", err)
	}

	if newStatus == connection.StatusAccepted {
		_, err = s.notifications.Emit(ctx, tx, &notification.EmitRequest{
			RecipientID: conn.RequesterID,
			ActorID:     actorID,
			Type:        notification.TypeConnectionAccepted,
			ActionRef:   "/connections/network",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to notify requester: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit connection response: %w", err)
	}

	return conn, nil
}

// CancelConnection deletes a pending request. Only the requester may cancel,
// and only while the request is still pending.
func (s *ConnectionService) CancelConnection(ctx context.Context, connectionID, actorID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanConnection(tx.QueryRow(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE id = $1 FOR UPDATE`, connectionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("connection request not found")
		}
		return fmt.Errorf("failed to load connection: %w", err)
	}

	if current.RequesterID != actorID {
		return apperrors.NotAuthorized("only the requester can cancel this request")
	}
	if current.Status != connection.StatusPending {
		return apperrors.InvalidState(fmt.Sprintf("cannot cancel a %s connection", current.Status))
	}

	if _, err := tx.Exec(ctx, `DELETE FROM connections WHERE id = $1`, connectionID); err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit cancel: %w", err)
	}

	return nil
}

// RemoveConnection deletes the accepted edge between two users. Either side
// may remove; there is nothing to remove unless the pair is accepted.
func (s *ConnectionService) RemoveConnection(ctx context.Context, userA, userB uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
	DELETE FROM connections
	WHERE ((requester_id = $1 AND requested_id = $2) OR (requester_id = $2 AND requested_id = $1))
	  AND status = 'accepted'
	`, userA, userB)
	if err != nil {
		return fmt.Errorf("failed to remove connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("no accepted connection between these users")
	}
	return nil
}

// BlockUser forces the pair's single row into blocked state, re-pointing the
// direction at actor -> target. It overrides any prior status, including
// accepted, and always succeeds for an existing target.
func (s *ConnectionService) BlockUser(ctx context.Context, actorID, targetID uuid.UUID) (*connection.Connection, error) {
	if actorID == targetID {
		return nil, apperrors.SelfReference("cannot block yourself")
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, targetID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check target user: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("target user not found")
	}

	update := `
	UPDATE connections
	SET requester_id = $1, requested_id = $2, status = 'blocked', message = '', updated_at = NOW()
	WHERE (requester_id = $1 AND requested_id = $2) OR (requester_id = $2 AND requested_id = $1)
	RETURNING ` + connectionColumns

	conn, err := scanConnection(s.db.QueryRow(ctx, update, actorID, targetID))
	if err == nil {
		return conn, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to block user: %w", err)
	}

	insert := `
	INSERT INTO connections (requester_id, requested_id, status)
	VALUES ($1, $2, 'blocked')
	RETURNING ` + connectionColumns

	conn, err = scanConnection(s.db.QueryRow(ctx, insert, actorID, targetID))
	if err == nil {
		return conn, nil
	}
	if !isUniqueViolation(err) {
		return nil, fmt.Errorf("failed to block user: %w", err)
	}

	// Lost a race against a concurrent insert for the pair; overwrite it.
	conn, err = scanConnection(s.db.QueryRow(ctx, update, actorID, targetID))
	if err != nil {
		return nil, fmt.Errorf("failed to block user after race: %w", err)
	}
	return conn, nil
}

// ConnectedIDs returns the opposite endpoint of every accepted edge touching
// the user. Runs off the per-endpoint indexes, so cost scales with the
// user's edge count.
func (s *ConnectionService) ConnectedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `
	SELECT CASE WHEN requester_id = $1 THEN requested_id ELSE requester_id END
	FROM connections
	WHERE (requester_id = $1 OR requested_id = $1) AND status = 'accepted'
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query connected ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan connected id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read connected ids: %w", err)
	}
	return ids, nil
}

// StatusBetween is the direction-agnostic pair lookup. Returns nil when no
// edge exists.
func (s *ConnectionService) StatusBetween(ctx context.Context, userA, userB uuid.UUID) (*connection.Status, error) {
	var status connection.Status
	err := s.db.QueryRow(ctx, `
	SELECT status FROM connections
	WHERE (requester_id = $1 AND requested_id = $2) OR (requester_id = $2 AND requested_id = $1)
	`, userA, userB).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query status between users: %w", err)
	}
	return &status, nil
}

// GetConnection loads one edge by id.
func (s *ConnectionService) GetConnection(ctx context.Context, connectionID uuid.UUID) (*connection.Connection, error) {
	conn, err := scanConnection(s.db.QueryRow(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE id = $1`, connectionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("connection not found")
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return conn, nil
}

// Network assembles the my-network view: accepted connections plus pending
// requests in both directions.
func (s *ConnectionService) Network(ctx context.Context, userID uuid.UUID) (*connection.NetworkResponse, error) {
	accepted, err := s.networkEntries(ctx, `
	SELECT c.id, c.requester_id, c.requested_id, c.status, c.message, c.created_at, c.updated_at,
	       u.id, u.username, u.display_name
	FROM connections c
	JOIN users u ON u.id = CASE WHEN c.requester_id = $1 THEN c.requested_id ELSE c.requester_id END
	WHERE (c.requester_id = $1 OR c.requested_id = $1) AND c.status = 'accepted'
	ORDER BY u.display_name ASC
	`, userID)
	if err != nil {
		return nil, err
	}

	received, err := s.networkEntries(ctx, `
	SELECT c.id, c.requester_id, c.requested_id, c.status, c.message, c.created_at, c.updated_at,
	       u.id, u.username, u.display_name
	FROM connections c
	JOIN users u ON u.id = c.requester_id
	WHERE c.requested_id = $1 AND c.status = 'pending'
	ORDER BY c.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}

	sent, err := s.networkEntries(ctx, `
	SELECT c.id, c.requester_id, c.requested_id, c.status, c.message, c.created_at, c.updated_at,
	       u.id, u.username, u.display_name
	FROM connections c
	JOIN users u ON u.id = c.requested_id
	WHERE c.requester_id = $1 AND c.status = 'pending'
	ORDER BY c.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}

	return &connection.NetworkResponse{
		Connections:     accepted,
		PendingReceived: received,
		PendingSent:     sent,
	}, nil
}

func (s *ConnectionService) networkEntries(ctx context.Context, query string, userID uuid.UUID) ([]connection.NetworkEntry, error) {
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query network: %w", err)
	}
	defer rows.Close()

	entries := []connection.NetworkEntry{}
	for rows.Next() {
		conn := &connection.Connection{}
		entry := connection.NetworkEntry{}
		err := rows.Scan(
			&conn.ID,
			&conn.RequesterID,
			&conn.RequestedID,
			&conn.Status,
			&conn.Message,
			&conn.CreatedAt,
			&conn.UpdatedAt,
			&entry.User.ID,
			&entry.User.Username,
			&entry.User.DisplayName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan network entry: %w", err)
		}
		entry.Connection = conn
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read network entries: %w", err)
	}
	return entries, nil
}
