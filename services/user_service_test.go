package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkUpAPI/internal/apperrors"
	"linkUpAPI/internal/user"
)

func TestEnsureUser(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	clerkID := "test_clerk_" + createTestUser(t, pool, "seed").Username

	u, err := svc.users.EnsureUser(ctx, clerkID, &user.EnsureUserRequest{
		Username:    clerkID + "_name",
		DisplayName: "First Last",
		Headline:    "Engineer",
	})
	require.NoError(t, err)
	assert.Equal(t, "First Last", u.DisplayName)
	assert.Equal(t, user.PrivacyPublic, u.PrivacyLevel)

	// Second call with the same identity updates in place.
	again, err := svc.users.EnsureUser(ctx, clerkID, &user.EnsureUserRequest{
		Username:    clerkID + "_name",
		DisplayName: "New Name",
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "New Name", again.DisplayName)

	_, err = svc.users.EnsureUser(ctx, clerkID, &user.EnsureUserRequest{Username: "  "})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestGetUserLookups(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	alice := createTestUser(t, pool, "alice")

	byClerk, err := svc.users.GetUserByClerkID(ctx, alice.ClerkID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byClerk.ID)

	byName, err := svc.users.GetUserByUsername(ctx, alice.Username)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	byID, err := svc.users.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Username, byID.Username)

	_, err = svc.users.GetUserByClerkID(ctx, "test_missing")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestUpdatePrivacy(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	alice := createTestUser(t, pool, "alice")

	u, err := svc.users.UpdatePrivacy(ctx, alice.ID, user.PrivacyConnectionsOnly)
	require.NoError(t, err)
	assert.Equal(t, user.PrivacyConnectionsOnly, u.PrivacyLevel)

	_, err = svc.users.UpdatePrivacy(ctx, alice.ID, "invisible")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestSearchUsers(t *testing.T) {
	pool := setupTestDB(t)
	svc := newTestServices(pool)
	ctx := context.Background()

	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")

	results, err := svc.users.SearchUsers(ctx, alice.ID, bob.Username, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, bob.ID, results[0].ID)

	// The searcher never appears in their own results.
	results, err = svc.users.SearchUsers(ctx, alice.ID, alice.Username, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = svc.users.SearchUsers(ctx, alice.ID, "", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
