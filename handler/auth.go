package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/Lorent-Bloom/lorentbloom/backend/middleware"
	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/logger"
)

// CustomerAuth issues and revokes commerce customer tokens.
type CustomerAuth interface {
	GenerateToken(ctx context.Context, email, password string) (string, error)
	RevokeToken(ctx context.Context, token string) error
	GetCustomer(ctx context.Context, token string) (*model.Customer, error)
}

// SessionClearer drops the checkout state of a customer.
type SessionClearer interface {
	Clear(ctx context.Context, key string) error
}

type AuthHandler struct {
	config    *config.AuthConfig
	customers CustomerAuth
	sessions  SessionClearer
}

func NewAuthHandler(cfg *config.AuthConfig, customers CustomerAuth, sessions SessionClearer) *AuthHandler {
	return &AuthHandler{config: cfg, customers: customers, sessions: sessions}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Email     string `json:"email"`
	ExpiresAt string `json:"expires_at"`
}

// Login exchanges credentials for a commerce token and stores it in the
// session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	commerceToken, err := h.customers.GenerateToken(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.config, err)
		return
	}

	token, expiresAt, err := middleware.GenerateToken(req.Email, commerceToken, h.config)
	if err != nil {
		respondError(c, h.config, err)
		return
	}
	middleware.SetSessionCookie(c, h.config, token, expiresAt)
	logger.Info(logger.WithCustomer(c.Request.Context(), req.Email), "customer signed in")

	c.JSON(http.StatusOK, LoginResponse{
		Email:     req.Email,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// Logout revokes the commerce token and clears the cookie. Revocation and
// checkout cleanup failures are logged only.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.customers.RevokeToken(ctx, middleware.GetCommerceToken(c)); err != nil && !apperr.IsSessionExpired(err) {
		logger.Warn(ctx, "failed to revoke customer token", "error", err)
	}
	if h.sessions != nil {
		if err := h.sessions.Clear(ctx, middleware.GetCustomer(c)); err != nil {
			logger.Warn(ctx, "failed to clear checkout session", "error", err)
		}
	}

	middleware.ClearSessionCookie(c, h.config)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// GetCurrentUser returns the signed-in customer's profile.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	customer, err := h.customers.GetCustomer(c.Request.Context(), middleware.GetCommerceToken(c))
	if err != nil {
		respondError(c, h.config, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":               customer.Email,
		"name":                customer.FullName(),
		"addresses":           customer.Addresses,
		"has_personal_number": customer.PersonalNumber() != "",
	})
}
