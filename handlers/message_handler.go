package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"linkUpAPI/internal/conversation"
	"linkUpAPI/services"
)

type MessageHandler struct {
	userService         *services.UserService
	conversationService *services.ConversationService
}

func NewMessageHandler(userService *services.UserService, conversationService *services.ConversationService) *MessageHandler {
	return &MessageHandler{
		userService:         userService,
		conversationService: conversationService,
	}
}

func (h *MessageHandler) GetInbox(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	inbox, err := h.conversationService.Inbox(ctx, u.ID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, inbox)
}

// SendMessage is first contact by recipient: the private thread is found or
// created and the message appended in one step.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	var req conversation.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid recipient id")
		return
	}

	msg, err := h.conversationService.SendMessage(ctx, u.ID, recipientID, req.Content)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	conversationID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	page, pageSize := parsePagination(r)

	messages, err := h.conversationService.ListMessages(ctx, conversationID, u.ID, page, pageSize)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, messages)
}

// PostMessage appends to an existing conversation.
func (h *MessageHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	conversationID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	var req conversation.PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg, err := h.conversationService.PostMessage(ctx, conversationID, u.ID, req.Content)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	messageID, err := strconv.ParseInt(mux.Vars(r)["messageId"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid message id")
		return
	}

	var req conversation.EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg, err := h.conversationService.EditMessage(ctx, messageID, u.ID, req.Content)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := requireUser(ctx, w, h.userService)
	if !ok {
		return
	}

	messageID, err := strconv.ParseInt(mux.Vars(r)["messageId"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid message id")
		return
	}

	if err := h.conversationService.DeleteMessage(ctx, messageID, u.ID); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Message deleted"})
}
