package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkUpAPI/internal/apperrors"
	"linkUpAPI/internal/post"
)

func TestCreatePost(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	author := createTestUser(t, pool, "author")

	p, err := svc.posts.CreatePost(ctx, author.ID, &post.CreatePostRequest{Content: "hello world"})
	require.NoError(t, err)
	assert.Equal(t, post.VisibilityPublic, p.Visibility)
	assert.Equal(t, "hello world", p.Content)

	_, err = svc.posts.CreatePost(ctx, author.ID, &post.CreatePostRequest{Content: "   "})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))

	_, err = svc.posts.CreatePost(ctx, author.ID, &post.CreatePostRequest{Content: "x", Visibility: "friends-of-friends"})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestReactionToggle(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	author := createTestUser(t, pool, "author")
	reader := createTestUser(t, pool, "reader")

	p, err := svc.posts.CreatePost(ctx, author.ID, &post.CreatePostRequest{Content: "post"})
	require.NoError(t, err)

	// New reaction.
	res, err := svc.posts.React(ctx, p.ID, reader.ID, post.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, "added", res.Action)
	assert.Equal(t, 1, res.ReactionCount)

	// Author notified exactly once.
	count, err := svc.notifications.UnreadCount(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Different type updates in place, no second row or notification.
	res, err = svc.posts.React(ctx, p.ID, reader.ID, post.ReactionLove)
	require.NoError(t, err)
	assert.Equal(t, "updated", res.Action)
	assert.Equal(t, 1, res.ReactionCount)

	count, err = svc.notifications.UnreadCount(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Same type removes.
	res, err = svc.posts.React(ctx, p.ID, reader.ID, post.ReactionLove)
	require.NoError(t, err)
	assert.Equal(t, "removed", res.Action)
	assert.Equal(t, 0, res.ReactionCount)

	_, err = svc.posts.React(ctx, p.ID, reader.ID, "meh")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))

	_, err = svc.posts.React(ctx, 999999999, reader.ID, post.ReactionLike)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestReactToOwnPostNoNotification(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	author := createTestUser(t, pool, "author")

	p, err := svc.posts.CreatePost(ctx, author.ID, &post.CreatePostRequest{Content: "post"})
	require.NoError(t, err)

	res, err := svc.posts.React(ctx, p.ID, author.ID, post.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, "added", res.Action)

	count, err := svc.notifications.UnreadCount(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAddComment(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	author := createTestUser(t, pool, "author")
	reader := createTestUser(t, pool, "reader")

	p, err := svc.posts.CreatePost(ctx, author.ID, &post.CreatePostRequest{Content: "post"})
	require.NoError(t, err)

	comment, err := svc.posts.AddComment(ctx, p.ID, reader.ID, "nice one")
	require.NoError(t, err)
	assert.Equal(t, "nice one", comment.Content)
	assert.Equal(t, p.ID, comment.PostID)

	resp, err := svc.notifications.List(ctx, author.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "post_comment", string(resp.Notifications[0].Type))
	assert.Contains(t, resp.Notifications[0].Body, "nice one")

	_, err = svc.posts.AddComment(ctx, p.ID, reader.ID, "  ")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))

	comments, err := svc.posts.ListComments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
}
