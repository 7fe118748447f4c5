package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkUpAPI/handlers"
	"linkUpAPI/internal/connection"
	"linkUpAPI/internal/conversation"
	"linkUpAPI/internal/notification"
	"linkUpAPI/internal/post"
	"linkUpAPI/internal/user"
	"linkUpAPI/services"
	"linkUpAPI/tests/helpers"
)

type testEnv struct {
	users        *services.UserService
	userHandler  *handlers.UserHandler
	connHandler  *handlers.ConnectionHandler
	feedHandler  *handlers.FeedHandler
	notifHandler *handlers.NotificationHandler
	msgHandler   *handlers.MessageHandler
	router       *mux.Router
}

func setupEnv(t *testing.T) (*testEnv, func()) {
	pool := helpers.SetupTestDB(t)

	notifications := services.NewNotificationService(pool, time.UTC)
	users := services.NewUserService(pool)
	connections := services.NewConnectionService(pool, notifications)
	feed := services.NewFeedService(pool, connections)
	posts := services.NewPostService(pool, notifications)
	conversations := services.NewConversationService(pool, notifications)

	env := &testEnv{
		users:        users,
		userHandler:  handlers.NewUserHandler(users, connections, feed, notifications),
		connHandler:  handlers.NewConnectionHandler(users, connections, feed),
		feedHandler:  handlers.NewFeedHandler(users, posts, feed),
		notifHandler: handlers.NewNotificationHandler(users, notifications),
		msgHandler:   handlers.NewMessageHandler(users, conversations),
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/users/me", env.userHandler.EnsureMe).Methods("PUT")
	r.HandleFunc("/api/v1/users/{username}/profile", env.userHandler.GetProfile).Methods("GET")
	r.HandleFunc("/api/v1/connections/request", env.connHandler.RequestConnection).Methods("POST")
	r.HandleFunc("/api/v1/connections/{id}/respond", env.connHandler.RespondToConnection).Methods("PUT")
	r.HandleFunc("/api/v1/feed", env.feedHandler.GetFeed).Methods("GET")
	r.HandleFunc("/api/v1/posts", env.feedHandler.CreatePost).Methods("POST")
	r.HandleFunc("/api/v1/notifications", env.notifHandler.ListNotifications).Methods("GET")
	r.HandleFunc("/api/v1/messages", env.msgHandler.SendMessage).Methods("POST")
	r.HandleFunc("/api/v1/messages/conversations/{id}", env.msgHandler.ListMessages).Methods("GET")
	env.router = r

	return env, func() { helpers.CleanupTestDB(t, pool) }
}

func (e *testEnv) do(t *testing.T, method, path, clerkID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if clerkID != "" {
		req = helpers.AsUser(req, clerkID)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) signup(t *testing.T, name string) (*user.User, string) {
	t.Helper()

	clerkID := fmt.Sprintf("test_%s_%d", name, time.Now().UnixNano())
	rr := e.do(t, http.MethodPut, "/api/v1/users/me", clerkID, user.EnsureUserRequest{
		Username:    clerkID,
		DisplayName: name,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var u user.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &u))
	return &u, clerkID
}

func TestConnectionAndFeedFlow(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	alice, aliceClerk := env.signup(t, "alice")
	bob, bobClerk := env.signup(t, "bob")
	_ = alice

	// Bob posts to connections only.
	rr := env.do(t, http.MethodPost, "/api/v1/posts", bobClerk, post.CreatePostRequest{
		Content:    "for my people",
		Visibility: post.VisibilityConnections,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// Alice's feed does not show it yet.
	rr = env.do(t, http.MethodGet, "/api/v1/feed", aliceClerk, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var feed post.FeedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &feed))
	for _, item := range feed.Items {
		assert.NotEqual(t, "for my people", item.Content)
	}

	// Alice requests, bob accepts.
	rr = env.do(t, http.MethodPost, "/api/v1/connections/request", aliceClerk, connection.RequestConnectionRequest{
		RequestedID: bob.ID.String(),
		Message:     "hi bob",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var conn connection.Connection
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &conn))

	// Bob sees the request notification.
	rr = env.do(t, http.MethodGet, "/api/v1/notifications", bobClerk, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var notifs notification.ListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &notifs))
	require.NotEmpty(t, notifs.Notifications)
	assert.Equal(t, notification.TypeConnectionRequest, notifs.Notifications[0].Type)

	rr = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/connections/%s/respond", conn.ID), bobClerk, connection.RespondConnectionRequest{
		Action: "accept",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// Now the connections-only post appears in alice's feed.
	rr = env.do(t, http.MethodGet, "/api/v1/feed", aliceClerk, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &feed))
	found := false
	for _, item := range feed.Items {
		if item.Content == "for my people" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMessagingFlow(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	_, aliceClerk := env.signup(t, "alice")
	bob, bobClerk := env.signup(t, "bob")

	// First contact creates the thread implicitly.
	rr := env.do(t, http.MethodPost, "/api/v1/messages", aliceClerk, conversation.SendMessageRequest{
		RecipientID: bob.ID.String(),
		Content:     "hey bob!",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var msg conversation.Message
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &msg))

	// Bob got a message notification.
	rr = env.do(t, http.MethodGet, "/api/v1/notifications", bobClerk, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var notifs notification.ListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &notifs))
	require.NotEmpty(t, notifs.Notifications)
	assert.Equal(t, notification.TypeMessage, notifs.Notifications[0].Type)

	// Bob reads the history.
	rr = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/messages/conversations/%s", msg.ConversationID), bobClerk, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var page conversation.MessagesPage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "hey bob!", page.Messages[0].Content)
}

func TestProfilePrivacyFlow(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	owner, ownerClerk := env.signup(t, "owner")
	_, strangerClerk := env.signup(t, "stranger")

	// Public by default: a stranger can view and the owner gets a
	// profile_view notification.
	rr := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%s/profile", owner.Username), strangerClerk, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var profile user.ProfileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.False(t, profile.IsOwnProfile)

	rr = env.do(t, http.MethodGet, "/api/v1/notifications", ownerClerk, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var notifs notification.ListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &notifs))
	require.NotEmpty(t, notifs.Notifications)
	assert.Equal(t, notification.TypeProfileView, notifs.Notifications[0].Type)

	// Anonymous viewers see public profiles too, without recording a view.
	rr = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%s/profile", owner.Username), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}
