package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkUpAPI/internal/apperrors"
)

func TestFindOrCreatePrivateConverges(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")

	first, err := svc.conversations.FindOrCreatePrivate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	// Opposite argument order lands on the same thread.
	second, err := svc.conversations.FindOrCreatePrivate(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = svc.conversations.FindOrCreatePrivate(ctx, alice.ID, alice.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeSelfReference))

	_, err = svc.conversations.FindOrCreatePrivate(ctx, alice.ID, uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestSendMessage(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")

	msg, err := svc.conversations.SendMessage(ctx, alice.ID, bob.ID, "hey bob")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, msg.SenderID)
	assert.Equal(t, "hey bob", msg.Content)
	assert.False(t, msg.IsEdited)

	// The recipient got a message notification with a preview.
	resp, err := svc.notifications.List(ctx, bob.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "message", string(resp.Notifications[0].Type))
	assert.Contains(t, resp.Notifications[0].Body, "hey bob")

	// Replying lands in the same conversation.
	reply, err := svc.conversations.SendMessage(ctx, bob.ID, alice.ID, "hey alice")
	require.NoError(t, err)
	assert.Equal(t, msg.ConversationID, reply.ConversationID)

	_, err = svc.conversations.SendMessage(ctx, alice.ID, alice.ID, "hi me")
	assert.True(t, apperrors.Is(err, apperrors.CodeSelfReference))

	_, err = svc.conversations.SendMessage(ctx, alice.ID, bob.ID, "   ")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestPostMessageParticipantsOnly(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")
	eve := createTestUser(t, pool, "eve")

	msg, err := svc.conversations.SendMessage(ctx, alice.ID, bob.ID, "hello")
	require.NoError(t, err)

	_, err = svc.conversations.PostMessage(ctx, msg.ConversationID, eve.ID, "let me in")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotAParticipant))

	_, err = svc.conversations.PostMessage(ctx, uuid.New(), alice.ID, "void")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = svc.conversations.PostMessage(ctx, msg.ConversationID, bob.ID, "welcome")
	require.NoError(t, err)
}

func TestListMessagesOrderAndAccess(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")
	eve := createTestUser(t, pool, "eve")

	first, err := svc.conversations.SendMessage(ctx, alice.ID, bob.ID, "one")
	require.NoError(t, err)
	_, err = svc.conversations.PostMessage(ctx, first.ConversationID, bob.ID, "two")
	require.NoError(t, err)
	_, err = svc.conversations.PostMessage(ctx, first.ConversationID, alice.ID, "three")
	require.NoError(t, err)

	page, err := svc.conversations.ListMessages(ctx, first.ConversationID, alice.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	assert.Equal(t, "one", page.Messages[0].Content)
	assert.Equal(t, "two", page.Messages[1].Content)
	assert.Equal(t, "three", page.Messages[2].Content)

	_, err = svc.conversations.ListMessages(ctx, first.ConversationID, eve.ID, 1, 10)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotAParticipant))

	_, err = svc.conversations.ListMessages(ctx, uuid.New(), alice.ID, 1, 10)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestEditAndDeleteMessage(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")

	msg, err := svc.conversations.SendMessage(ctx, alice.ID, bob.ID, "typo")
	require.NoError(t, err)

	// Only the sender may edit.
	_, err = svc.conversations.EditMessage(ctx, msg.ID, bob.ID, "fixed")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotAuthorized))

	edited, err := svc.conversations.EditMessage(ctx, msg.ID, alice.ID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Content)
	assert.True(t, edited.IsEdited)

	// Only the sender may delete.
	err = svc.conversations.DeleteMessage(ctx, msg.ID, bob.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotAuthorized))

	require.NoError(t, svc.conversations.DeleteMessage(ctx, msg.ID, alice.ID))

	err = svc.conversations.DeleteMessage(ctx, msg.ID, alice.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestInbox(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")
	carol := createTestUser(t, pool, "carol")

	_, err := svc.conversations.SendMessage(ctx, bob.ID, alice.ID, "from bob")
	require.NoError(t, err)
	latest, err := svc.conversations.SendMessage(ctx, carol.ID, alice.ID, "from carol")
	require.NoError(t, err)
	_, err = svc.conversations.PostMessage(ctx, latest.ConversationID, alice.ID, "hi carol")
	require.NoError(t, err)

	inbox, err := svc.conversations.Inbox(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 2)

	// Most recently active thread first.
	assert.Equal(t, latest.ConversationID, inbox[0].Conversation.ID)
	require.NotNil(t, inbox[0].LatestMessage)
	assert.Equal(t, "hi carol", inbox[0].LatestMessage.Content)
	require.Len(t, inbox[0].OtherParticipants, 1)
	assert.Equal(t, carol.ID, inbox[0].OtherParticipants[0].ID)
	// One message not sent by alice in the carol thread.
	assert.Equal(t, 1, inbox[0].UnreadCount)

	assert.Equal(t, 1, inbox[1].UnreadCount)
	assert.Equal(t, bob.ID, inbox[1].OtherParticipants[0].ID)
}

func TestInboxEmptyThread(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")

	// A thread with no messages yet still lists, with no latest message and
	// nothing unread, and its participants resolved.
	conv, err := svc.conversations.FindOrCreatePrivate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	inbox, err := svc.conversations.Inbox(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, conv.ID, inbox[0].Conversation.ID)
	assert.Nil(t, inbox[0].LatestMessage)
	assert.Equal(t, 0, inbox[0].UnreadCount)
	require.Len(t, inbox[0].OtherParticipants, 1)
	assert.Equal(t, bob.ID, inbox[0].OtherParticipants[0].ID)
	assert.Len(t, inbox[0].Conversation.ParticipantIDs, 2)
}
