package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"linkUpAPI/internal/post"
	"linkUpAPI/middleware"
	"linkUpAPI/services"
)

type FeedHandler struct {
	userService *services.UserService
	postService *services.PostService
	feedService *services.FeedService
}

func NewFeedHandler(userService *services.UserService, postService *services.PostService, feedService *services.FeedService) *FeedHandler {
	return &FeedHandler{
		userService: userService,
		postService: postService,
		feedService: feedService,
	}
}

func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	page, pageSize := parsePagination(r)

	feed, err := h.feedService.ComposeFeed(ctx, u.ID, page, pageSize)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, feed)
}

func (h *FeedHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	var req post.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.postService.CreatePost(ctx, u.ID, &req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, p)
}

// GetPost serves a single post under its visibility level. The viewer may be
// anonymous; a post they cannot see reads as not found rather than forbidden,
// so its existence is not leaked.
func (h *FeedHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	postID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	p, err := h.postService.GetPost(ctx, postID)
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

	canView, err := h.feedService.CanView(ctx, viewerID, p)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	if !canView {
		respondWithError(w, http.StatusNotFound, "Post not found")
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

func (h *FeedHandler) ReactToPost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	postID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	var req post.ReactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.viewGate(ctx, u.ID, postID, w) {
		return
	}

	result, err := h.postService.React(ctx, postID, u.ID, req.ReactionType)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *FeedHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	postID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	var req post.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.viewGate(ctx, u.ID, postID, w) {
		return
	}

	comment, err := h.postService.AddComment(ctx, postID, u.ID, req.Content)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, comment)
}

func (h *FeedHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	postID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	if !h.viewGate(ctx, u.ID, postID, w) {
		return
	}

	comments, err := h.postService.ListComments(ctx, postID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, comments)
}

// viewGate enforces post visibility before any interaction with it. Writes
// the response itself on failure; callers just return.
func (h *FeedHandler) viewGate(ctx context.Context, viewerID uuid.UUID, postID int64, w http.ResponseWriter) bool {
	p, err := h.postService.GetPost(ctx, postID)
	if err != nil {
		respondWithAppError(w, err)
		return false
	}

	canView, err := h.feedService.CanView(ctx, viewerID, p)
	if err != nil {
		respondWithAppError(w, err)
		return false
	}
	if !canView {
		respondWithError(w, http.StatusNotFound, "Post not found")
		return false
	}
	return true
}
