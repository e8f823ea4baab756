package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/Lorent-Bloom/lorentbloom/backend/middleware"
	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
)

const defaultMessageLimit = 50

type ConversationStore interface {
	GetByOrderID(ctx context.Context, orderID string) (*model.Conversation, error)
	PostMessage(ctx context.Context, conversationID, senderEmail, body string) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	MarkRead(ctx context.Context, conversationID, email string, at time.Time) error
	UnreadCount(ctx context.Context, conversationID, email string) (int64, error)
}

type ConversationHandler struct {
	store ConversationStore
	auth  *config.AuthConfig
}

func NewConversationHandler(store ConversationStore, auth *config.AuthConfig) *ConversationHandler {
	return &ConversationHandler{store: store, auth: auth}
}

// conversation loads the order's conversation for a participant.
func (h *ConversationHandler) conversation(c *gin.Context) (*model.Conversation, bool) {
	conv, err := h.store.GetByOrderID(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, h.auth, err)
		return nil, false
	}
	if !conv.IsParticipant(middleware.GetCustomer(c)) {
		respondError(c, h.auth, apperr.Forbidden("you are not part of this conversation"))
		return nil, false
	}
	return conv, true
}

// Get returns the conversation, its latest messages and the caller's
// unread count.
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, ok := h.conversation(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	limit := defaultMessageLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}

	messages, err := h.store.ListMessages(ctx, conv.ID, limit)
	if err != nil {
		respondError(c, h.auth, err)
		return
	}
	unread, err := h.store.UnreadCount(ctx, conv.ID, middleware.GetCustomer(c))
	if err != nil {
		respondError(c, h.auth, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation": conv,
		"messages":     messages,
		"unread":       unread,
	})
}

type postMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *ConversationHandler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Message body is required")
		return
	}
	conv, ok := h.conversation(c)
	if !ok {
		return
	}

	msg, err := h.store.PostMessage(c.Request.Context(), conv.ID, middleware.GetCustomer(c), req.Body)
	if err != nil {
		respondError(c, h.auth, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkRead moves the caller's read cursor to now.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	conv, ok := h.conversation(c)
	if !ok {
		return
	}

	if err := h.store.MarkRead(c.Request.Context(), conv.ID, middleware.GetCustomer(c), time.Now().UTC()); err != nil {
		respondError(c, h.auth, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": 0})
}
