package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"linkUpAPI/internal/schema"
	"linkUpAPI/internal/user"
)

// setupTestDB connects to the test database and applies the schema. Tests
// are skipped when no database is configured so the suite stays runnable
// anywhere.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if err := godotenv.Load("../.env"); err != nil {
		_ = godotenv.Load()
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	_, err = pool.Exec(ctx, schema.DDL)
	require.NoError(t, err)

	t.Cleanup(func() {
		cleanupTestData(t, pool)
		pool.Close()
	})

	return pool
}

func cleanupTestData(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	// Everything hangs off users through cascading foreign keys.
	_, err := pool.Exec(context.Background(), `DELETE FROM users WHERE clerk_id LIKE 'test_%'`)
	if err != nil {
		t.Logf("Warning: failed to cleanup test data: %v", err)
	}
}

// createTestUser inserts a user with unique test-prefixed identifiers.
func createTestUser(t *testing.T, pool *pgxpool.Pool, name string) *user.User {
	t.Helper()

	suffix := uuid.New().String()[:8]
	clerkID := fmt.Sprintf("test_%s_%s", name, suffix)
	username := fmt.Sprintf("test_%s_%s", name, suffix)

	u := &user.User{}
	err := pool.QueryRow(context.Background(), `
	INSERT INTO users (clerk_id, username, display_name)
	VALUES ($1, $2, $3)
	RETURNING id, clerk_id, username, display_name, headline, privacy_level, created_at, updated_at
	`, clerkID, username, name).Scan(
		&u.ID, &u.ClerkID, &u.Username, &u.DisplayName, &u.Headline, &u.PrivacyLevel, &u.CreatedAt, &u.UpdatedAt)
	require.NoError(t, err)
	return u
}

// newTestServices wires the full service graph against one pool.
type testServices struct {
	users         *UserService
	connections   *ConnectionService
	notifications *NotificationService
	feed          *FeedService
	posts         *PostService
	conversations *ConversationService
}

func newTestServices(pool *pgxpool.Pool) *testServices {
	notifications := NewNotificationService(pool, time.UTC)
	connections := NewConnectionService(pool, notifications)
	return &testServices{
		users:         NewUserService(pool),
		connections:   connections,
		notifications: notifications,
		feed:          NewFeedService(pool, connections),
		posts:         NewPostService(pool, notifications),
		conversations: NewConversationService(pool, notifications),
	}
}
