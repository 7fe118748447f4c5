package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"linkUpAPI/internal/apperrors"
	"linkUpAPI/internal/notification"
	"linkUpAPI/internal/user"
	"linkUpAPI/middleware"
	"linkUpAPI/services"
)

type UserHandler struct {
	userService         *services.UserService
	connectionService   *services.ConnectionService
	feedService         *services.FeedService
	notificationService *services.NotificationService
}

func NewUserHandler(userService *services.UserService, connectionService *services.ConnectionService, feedService *services.FeedService, notificationService *services.NotificationService) *UserHandler {
	return &UserHandler{
		userService:         userService,
		connectionService:   connectionService,
		feedService:         feedService,
		notificationService: notificationService,
	}
}

// EnsureMe upserts the caller's user row from their auth identity.
func (h *UserHandler) EnsureMe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.EnsureUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.userService.EnsureUser(ctx, clerkID, &req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdatePrivacy(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	var req user.UpdatePrivacyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.userService.UpdatePrivacy(ctx, u.ID, req.PrivacyLevel)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "Search query parameter 'q' is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	results, err := h.userService.SearchUsers(ctx, u.ID, query, limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, results)
}

// GetProfile serves a profile page under the owner's privacy level. The
// viewer may be anonymous. A permitted view by another user records a
// profile_view notification; failures there are logged and do not fail the
// page.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	username := mux.Vars(r)["username"]

	owner, err := h.userService.GetUserByUsername(ctx, username)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	viewerID := uuid.Nil
	if clerkID, ok := middleware.GetClerkID(ctx); ok {
		viewer, err := h.userService.GetUserByClerkID(ctx, clerkID)
		if err == nil {
			viewerID = viewer.ID
		}
	}

	canView, err := h.feedService.CanViewProfile(ctx, viewerID, owner)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	if !canView {
		respondWithError(w, http.StatusForbidden, "This profile is not visible to you")
		return
	}

	resp := &user.ProfileResponse{
		User:         owner,
		IsOwnProfile: viewerID == owner.ID,
	}

	if viewerID != uuid.Nil && viewerID != owner.ID {
		if status, err := h.connectionService.StatusBetween(ctx, viewerID, owner.ID); err == nil && status != nil {
			s := string(*status)
			resp.ConnectionStatus = &s
		}

		if _, err := h.notificationService.EmitStandalone(ctx, &notification.EmitRequest{
			RecipientID: owner.ID,
			ActorID:     viewerID,
			Type:        notification.TypeProfileView,
			ActionRef:   "/users/" + username + "/profile",
		}); err != nil {
			log.Printf("Failed to record profile view of %s by %s: %v", owner.ID, viewerID, err)
		}
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// requireUser resolves the authenticated identity to a user row, writing the
// error response itself when that fails.
func requireUser(ctx context.Context, w http.ResponseWriter, users *services.UserService) (*user.User, bool) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return nil, false
	}

	u, err := users.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			respondWithError(w, http.StatusNotFound, "User profile not set up")
			return nil, false
		}
		log.Printf("Failed to resolve user %s: %v", clerkID, err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return u, true
}

// parsePagination reads page/page_size query params with sane bounds.
func parsePagination(r *http.Request) (int, int) {
	page := 1
	pageSize := 20

	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			pageSize = parsed
		}
	}
	return page, pageSize
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithAppError maps domain errors to HTTP statuses. Unknown errors are
// logged and hidden behind a generic 500.
func respondWithAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("Internal error: %v", err)
		respondWithError(w, status, "Internal server error")
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		respondWithJSON(w, status, map[string]string{"error": appErr.Message, "code": string(appErr.Code)})
		return
	}
	respondWithError(w, status, err.Error())
}
