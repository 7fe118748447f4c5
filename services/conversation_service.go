package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkUpAPI/internal/apperrors"
	"linkUpAPI/internal/conversation"
	"linkUpAPI/internal/notification"
	"linkUpAPI/internal/user"
	"linkUpAPI/utils"
)

const messagePreviewLen = 50

type ConversationService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
}

func NewConversationService(db *pgxpool.Pool, notifications *NotificationService) *ConversationService {
	return &ConversationService{db: db, notifications: notifications}
}

func scanMessage(row pgx.Row) (*conversation.Message, error) {
	m := &conversation.Message{}
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.IsEdited, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// FindOrCreatePrivate returns the single private conversation between two
// users, creating it if absent. Both argument orders converge on the same row
// through the stored pair key.
func (s *ConversationService) FindOrCreatePrivate(ctx context.Context, a, b uuid.UUID) (*conversation.Conversation, error) {
	if a == b {
		return nil, apperrors.SelfReference("cannot start a conversation with yourself")
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, b).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check recipient: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("recipient not found")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	conv, err := s.findOrCreatePrivateTx(ctx, tx, a, b)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationService) findOrCreatePrivateTx(ctx context.Context, tx pgx.Tx, a, b uuid.UUID) (*conversation.Conversation, error) {
	pairKey := conversation.PairKey(a, b)

	conv := &conversation.Conversation{}
	err := tx.QueryRow(ctx, `
	INSERT INTO conversations (kind, pair_key, created_by)
	VALUES ('private', $1, $2)
	ON CONFLICT (pair_key) DO NOTHING
	RETURNING id, kind, created_by, created_at, updated_at
	`, pairKey, a).Scan(&conv.ID, &conv.Kind, &conv.CreatedBy, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
		// Lost the race or the thread already existed; load the winner.
		err = tx.QueryRow(ctx, `
		SELECT id, kind, created_by, created_at, updated_at
		FROM conversations WHERE pair_key = $1
		`, pairKey).Scan(&conv.ID, &conv.Kind, &conv.CreatedBy, &conv.CreatedAt, &conv.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
	INSERT INTO conversation_participants (conversation_id, user_id)
	VALUES ($1, $2), ($1, $3)
	ON CONFLICT DO NOTHING
	`, conv.ID, a, b); err != nil {
		return nil, fmt.Errorf("failed to add participants: %w", err)
	}

	conv.ParticipantIDs = []uuid.UUID{a, b}
	return conv, nil
}

// SendMessage is the first-contact path: resolve or create the private thread
// with the recipient and append the message, in one transaction.
func (s *ConversationService) SendMessage(ctx context.Context, senderID, recipientID uuid.UUID, content string) (*conversation.Message, error) {
	if senderID == recipientID {
		return nil, apperrors.SelfReference("cannot message yourself")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.InvalidState("message content is required")
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, recipientID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check recipient: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("recipient not found")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	conv, err := s.findOrCreatePrivateTx(ctx, tx, senderID, recipientID)
	if err != nil {
		return nil, err
	}

	msg, err := s.postMessageTx(ctx, tx, conv.ID, senderID, content)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return msg, nil
}

// PostMessage appends to an existing conversation the sender belongs to.
func (s *ConversationService) PostMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*conversation.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.InvalidState("message content is required")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	msg, err := s.postMessageTx(ctx, tx, conversationID, senderID, content)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return msg, nil
}

func (s *ConversationService) postMessageTx(ctx context.Context, tx pgx.Tx, conversationID, senderID uuid.UUID, content string) (*conversation.Message, error) {
	rows, err := tx.Query(ctx, `
	SELECT user_id FROM conversation_participants WHERE conversation_id = $1
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}

	var participants []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read participants: %w", err)
	}

	if len(participants) == 0 {
		return nil, apperrors.NotFound("conversation not found")
	}
	isParticipant := false
	for _, id := range participants {
		if id == senderID {
			isParticipant = true
			break
		}
	}
	if !isParticipant {
		return nil, apperrors.NotAParticipant("sender is not in this conversation")
	}

	msg, err := scanMessage(tx.QueryRow(ctx, `
	INSERT INTO messages (conversation_id, sender_id, content)
	VALUES ($1, $2, $3)
	RETURNING id, conversation_id, sender_id, content, is_edited, created_at, updated_at
	`, conversationID, senderID, content))
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID); err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}

	preview := utils.Preview(content, messagePreviewLen)
	for _, id := range participants {
		if id == senderID {
			continue
		}
		if _, err := s.notifications.Emit(ctx, tx, &notification.EmitRequest{
			RecipientID: id,
			ActorID:     senderID,
			Type:        notification.TypeMessage,
			ActionRef:   fmt.Sprintf("/messages/conversations/%s", conversationID),
			Preview:     preview,
		}); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

// EditMessage rewrites a message's content. Sender only; the edited flag is
// permanent once set.
func (s *ConversationService) EditMessage(ctx context.Context, messageID int64, actorID uuid.UUID, newContent string) (*conversation.Message, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, apperrors.InvalidState("message content is required")
	}

	var senderID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT sender_id FROM messages WHERE id = $1`, messageID).Scan(&senderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("message not found")
		}
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	if senderID != actorID {
		return nil, apperrors.NotAuthorized("only the sender can edit a message")
	}

	msg, err := scanMessage(s.db.QueryRow(ctx, `
	UPDATE messages SET content = $1, is_edited = TRUE, updated_at = NOW()
	WHERE id = $2
	RETURNING id, conversation_id, sender_id, content, is_edited, created_at, updated_at
	`, newContent, messageID))
	if err != nil {
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}
	return msg, nil
}

// DeleteMessage removes a message. Sender only.
func (s *ConversationService) DeleteMessage(ctx context.Context, messageID int64, actorID uuid.UUID) error {
	var senderID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT sender_id FROM messages WHERE id = $1`, messageID).Scan(&senderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("message not found")
		}
		return fmt.Errorf("failed to load message: %w", err)
	}
	if senderID != actorID {
		return apperrors.NotAuthorized("only the sender can delete a message")
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// ListMessages returns a page of a conversation's history, oldest first.
// Non-participants are refused even for empty threads.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID, requesterID uuid.UUID, page, pageSize int) (*conversation.MessagesPage, error) {
	var isParticipant bool
	err := s.db.QueryRow(ctx, `
	SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)
	`, conversationID, requesterID).Scan(&isParticipant)
	if err != nil {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}
	if !isParticipant {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM conversations WHERE id = $1)`, conversationID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check conversation: %w", err)
		}
		if !exists {
			return nil, apperrors.NotFound("conversation not found")
		}
		return nil, apperrors.NotAParticipant("requester is not in this conversation")
	}

	offset := (page - 1) * pageSize
	rows, err := s.db.Query(ctx, `
	SELECT id, conversation_id, sender_id, content, is_edited, created_at, updated_at
	FROM messages
	WHERE conversation_id = $1
	ORDER BY created_at ASC, id ASC
	LIMIT $2 OFFSET $3
	`, conversationID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []*conversation.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return &conversation.MessagesPage{Messages: messages, Page: page, PageSize: pageSize}, nil
}

// Inbox lists the user's conversations, most recently active first, with the
// latest message and the unread approximation (messages sent by anyone else;
// there is no per-recipient read cursor). One query for the threads, one for
// all their participants.
func (s *ConversationService) Inbox(ctx context.Context, userID uuid.UUID) ([]conversation.InboxEntry, error) {
	rows, err := s.db.Query(ctx, `
	SELECT c.id, c.kind, c.created_by, c.created_at, c.updated_at,
	       m.id, m.sender_id, m.content, m.is_edited, m.created_at, m.updated_at,
	       (SELECT COUNT(*) FROM messages mc WHERE mc.conversation_id = c.id AND mc.sender_id <> $1)
	FROM conversations c
	JOIN conversation_participants cp ON cp.conversation_id = c.id
	LEFT JOIN LATERAL (
	    SELECT id, sender_id, content, is_edited, created_at, updated_at
	    FROM messages
	    WHERE conversation_id = c.id
	    ORDER BY created_at DESC, id DESC
	    LIMIT 1
	) m ON TRUE
	WHERE cp.user_id = $1
	ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	entries := []conversation.InboxEntry{}
	byID := map[uuid.UUID]int{}
	for rows.Next() {
		conv := &conversation.Conversation{}
		var (
			msgID       *int64
			msgSender   *uuid.UUID
			msgContent  *string
			msgEdited   *bool
			msgCreated  *time.Time
			msgUpdated  *time.Time
			unreadCount int
		)
		err := rows.Scan(
			&conv.ID, &conv.Kind, &conv.CreatedBy, &conv.CreatedAt, &conv.UpdatedAt,
			&msgID, &msgSender, &msgContent, &msgEdited, &msgCreated, &msgUpdated,
			&unreadCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		entry := conversation.InboxEntry{
			Conversation:      conv,
			OtherParticipants: []user.Summary{},
			UnreadCount:       unreadCount,
		}
		if msgID != nil {
			entry.LatestMessage = &conversation.Message{
				ID:             *msgID,
				ConversationID: conv.ID,
				SenderID:       *msgSender,
				Content:        utils.Preview(*msgContent, messagePreviewLen),
				IsEdited:       *msgEdited,
				CreatedAt:      *msgCreated,
				UpdatedAt:      *msgUpdated,
			}
		}
		byID[conv.ID] = len(entries)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}
	if len(entries) == 0 {
		return entries, nil
	}

	conversationIDs := make([]string, len(entries))
	for i, entry := range entries {
		conversationIDs[i] = entry.Conversation.ID.String()
	}

	prows, err := s.db.Query(ctx, `
	SELECT cp.conversation_id, u.id, u.username, u.display_name
	FROM conversation_participants cp
	JOIN users u ON u.id = cp.user_id
	WHERE cp.conversation_id = ANY($1::uuid[])
	`, conversationIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	defer prows.Close()

	for prows.Next() {
		var conversationID uuid.UUID
		var u user.Summary
		if err := prows.Scan(&conversationID, &u.ID, &u.Username, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		i, ok := byID[conversationID]
		if !ok {
			continue
		}
		entries[i].Conversation.ParticipantIDs = append(entries[i].Conversation.ParticipantIDs, u.ID)
		if u.ID != userID {
			entries[i].OtherParticipants = append(entries[i].OtherParticipants, u)
		}
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read participants: %w", err)
	}

	return entries, nil
}
