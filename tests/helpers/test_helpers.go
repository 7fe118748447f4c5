package helpers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkUpAPI/internal/schema"
	"linkUpAPI/middleware"
)

// SetupTestDB connects to the test database and applies the schema. Skips
// the caller when no database is configured.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	if _, err := pool.Exec(ctx, schema.DDL); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	return pool
}

// CleanupTestDB removes test rows and closes the pool. Test data hangs off
// users through cascading foreign keys.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	if _, err := pool.Exec(ctx, `DELETE FROM users WHERE clerk_id LIKE 'test_%'`); err != nil {
		t.Logf("Warning: failed to cleanup test data: %v", err)
	}
	pool.Close()
}

// AsUser stamps the request context the way the auth middleware would after
// verifying a token for clerkID.
func AsUser(r *http.Request, clerkID string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ClerkIDKey, clerkID)
	return r.WithContext(ctx)
}

// GenerateMockClerkJWT signs a throwaway token with the shape the auth layer
// expects. Useful for exercising header parsing; real verification needs a
// live Clerk key.
func GenerateMockClerkJWT(clerkID string) (string, error) {
	secretKey := []byte("test-secret-key-for-testing-only")

	claims := jwt.MapClaims{
		"sub": clerkID,
		"iss": "https://clerk.test",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"azp": "test-app-id",
		"sid": "sess_test123",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}
