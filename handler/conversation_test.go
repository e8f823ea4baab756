package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Lorent-Bloom/lorentbloom/backend/middleware"
	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
)

type fakeConversationStore struct {
	mu       sync.Mutex
	conv     model.Conversation
	messages []model.Message
	reads    map[string]time.Time
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{
		conv: model.Conversation{
			ID:          "conv-1",
			OrderID:     "000000042",
			Owner:       model.Participant{Email: "owner@example.com"},
			Receiver:    model.Participant{Email: "renter@example.com"},
			CurrentStep: model.StepOrderPlaced,
		},
		reads: make(map[string]time.Time),
	}
}

func (f *fakeConversationStore) GetByOrderID(_ context.Context, orderID string) (*model.Conversation, error) {
	if orderID != f.conv.OrderID {
		return nil, apperr.NotFound(apperr.CodeConversation, "no conversation for order "+orderID)
	}
	c := f.conv
	return &c, nil
}

func (f *fakeConversationStore) PostMessage(_ context.Context, conversationID, sender, body string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(body) == "" {
		return nil, apperr.Validation("message body is required")
	}
	msg := model.Message{ID: "m", ConversationID: conversationID, SenderEmail: sender, Body: body, CreatedAt: time.Now()}
	f.messages = append(f.messages, msg)
	return &msg, nil
}

func (f *fakeConversationStore) ListMessages(_ context.Context, _ string, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) > limit {
		return f.messages[len(f.messages)-limit:], nil
	}
	return f.messages, nil
}

func (f *fakeConversationStore) MarkRead(_ context.Context, _ string, email string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[email] = at
	return nil
}

func (f *fakeConversationStore) UnreadCount(_ context.Context, _ string, email string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.messages {
		if m.SenderEmail != email && m.CreatedAt.After(f.reads[email]) {
			n++
		}
	}
	return n, nil
}

func newConversationRouter(store ConversationStore) *gin.Engine {
	cfg := testAuthConfig()
	h := NewConversationHandler(store, cfg)
	router := gin.New()
	g := router.Group("/api/orders/:number/conversation", middleware.AuthMiddleware(cfg))
	g.GET("", h.Get)
	g.POST("/messages", h.PostMessage)
	g.POST("/read", h.MarkRead)
	return router
}

func TestConversationHandlerMessaging(t *testing.T) {
	store := newFakeConversationStore()
	router := newConversationRouter(store)
	cfg := testAuthConfig()
	owner := sessionCookie(t, cfg, "owner@example.com")
	renter := sessionCookie(t, cfg, "renter@example.com")

	w := doRequest(t, router, "POST", "/api/orders/000000042/conversation/messages", gin.H{"body": "Pickup at noon?"}, renter)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, "GET", "/api/orders/000000042/conversation", nil, owner)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["unread"] != float64(1) {
		t.Errorf("Expected 1 unread message, got %v", body["unread"])
	}
	if msgs := body["messages"].([]any); len(msgs) != 1 {
		t.Errorf("Expected 1 message, got %d", len(msgs))
	}

	w = doRequest(t, router, "POST", "/api/orders/000000042/conversation/read", nil, owner)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if _, ok := store.reads["owner@example.com"]; !ok {
		t.Error("Expected owner read cursor to be stored")
	}
}

func TestConversationHandlerAccess(t *testing.T) {
	router := newConversationRouter(newFakeConversationStore())
	cfg := testAuthConfig()

	tests := []struct {
		name       string
		method     string
		path       string
		email      string
		body       any
		wantStatus int
	}{
		{"stranger reads", "GET", "/api/orders/000000042/conversation", "stranger@example.com", nil, http.StatusForbidden},
		{"stranger posts", "POST", "/api/orders/000000042/conversation/messages", "stranger@example.com", gin.H{"body": "hi"}, http.StatusForbidden},
		{"unknown order", "GET", "/api/orders/000000099/conversation", "owner@example.com", nil, http.StatusNotFound},
		{"empty body", "POST", "/api/orders/000000042/conversation/messages", "owner@example.com", gin.H{"body": ""}, http.StatusBadRequest},
		{"blank body", "POST", "/api/orders/000000042/conversation/messages", "owner@example.com", gin.H{"body": "   "}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, tt.method, tt.path, tt.body, sessionCookie(t, cfg, tt.email))
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}
