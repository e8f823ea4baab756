package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lorent-Bloom/lorentbloom/backend/checkout"
	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/Lorent-Bloom/lorentbloom/backend/middleware"
	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/logger"
)

type CheckoutHandler struct {
	orch     *checkout.Orchestrator
	sessions *checkout.Sessions
	auth     *config.AuthConfig
}

func NewCheckoutHandler(orch *checkout.Orchestrator, sessions *checkout.Sessions, auth *config.AuthConfig) *CheckoutHandler {
	return &CheckoutHandler{orch: orch, sessions: sessions, auth: auth}
}

// sessionView is the client-facing part of a checkout session.
type sessionView struct {
	Step              checkout.Step         `json:"step"`
	BillingAddressID  int                   `json:"billing_address_id,omitempty"`
	ShippingAddressID int                   `json:"shipping_address_id,omitempty"`
	ShippingMethod    *model.ShippingMethod `json:"shipping_method,omitempty"`
	PaymentMethod     string                `json:"payment_method,omitempty"`
	HasPreview        bool                  `json:"has_preview"`
	Signed            bool                  `json:"signed"`
	AcceptedTerms     bool                  `json:"accepted_terms"`
	ReadyToPlace      bool                  `json:"ready_to_place"`
}

func (h *CheckoutHandler) view(s *checkout.Session) sessionView {
	return sessionView{
		Step:              s.Step,
		BillingAddressID:  s.BillingAddressID,
		ShippingAddressID: s.ShippingAddressID,
		ShippingMethod:    s.ShippingMethod,
		PaymentMethod:     s.PaymentMethod,
		HasPreview:        s.Preview != nil,
		Signed:            s.Signature != nil,
		AcceptedTerms:     s.AcceptedTerms,
		ReadyToPlace:      h.orch.ReadyToPlace(s),
	}
}

// withSession loads the caller's session, runs fn and saves the session
// whether or not fn failed, since failed steps still move the state.
func (h *CheckoutHandler) withSession(c *gin.Context, fn func(s *checkout.Session) (any, error)) {
	ctx := c.Request.Context()
	key := middleware.GetCustomer(c)

	s, err := h.sessions.Load(ctx, key)
	if err != nil {
		respondError(c, h.auth, err)
		return
	}

	out, fnErr := fn(s)
	if err := h.sessions.Save(ctx, key, s); err != nil {
		logger.Error(ctx, "failed to save checkout session", "error", err)
		if fnErr == nil {
			respondError(c, h.auth, err)
			return
		}
	}
	if fnErr != nil {
		respondError(c, h.auth, fnErr)
		return
	}

	if out == nil {
		out = h.view(s)
	}
	c.JSON(http.StatusOK, out)
}

// Get returns the current checkout state.
func (h *CheckoutHandler) Get(c *gin.Context) {
	h.withSession(c, func(*checkout.Session) (any, error) { return nil, nil })
}

type addressesRequest struct {
	BillingAddressID  int `json:"billing_address_id" binding:"required"`
	ShippingAddressID int `json:"shipping_address_id" binding:"required"`
}

// ConfirmAddresses selects the addresses and pushes them to the cart.
func (h *CheckoutHandler) ConfirmAddresses(c *gin.Context) {
	var req addressesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Billing and shipping address are required")
		return
	}

	h.withSession(c, func(s *checkout.Session) (any, error) {
		if err := h.orch.SelectAddresses(s, req.BillingAddressID, req.ShippingAddressID); err != nil {
			return nil, err
		}
		return nil, h.orch.ConfirmAddress(c.Request.Context(), middleware.GetCommerceToken(c), s)
	})
}

// CreateAddress adds an address to the customer's address book.
func (h *CheckoutHandler) CreateAddress(c *gin.Context) {
	var req checkout.AddressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid address")
		return
	}

	h.withSession(c, func(s *checkout.Session) (any, error) {
		addr, err := h.orch.CreateAddress(c.Request.Context(), middleware.GetCommerceToken(c), s, req)
		if err != nil {
			return nil, err
		}
		return gin.H{"address": addr, "checkout": h.view(s)}, nil
	})
}

type paymentRequest struct {
	Method string `json:"method"`
}

func (h *CheckoutHandler) ConfirmPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	h.withSession(c, func(s *checkout.Session) (any, error) {
		return nil, h.orch.ConfirmPayment(s, req.Method)
	})
}

type localeRequest struct {
	Locale string `json:"locale"`
}

// Preview renders the draft contract and returns it as a PDF data URL.
func (h *CheckoutHandler) Preview(c *gin.Context) {
	var req localeRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	locale := requestLocale(c, req.Locale)

	h.withSession(c, func(s *checkout.Session) (any, error) {
		url, err := h.orch.GeneratePreview(c.Request.Context(), middleware.GetCommerceToken(c), s, locale)
		if err != nil {
			return nil, err
		}
		return gin.H{"preview_url": url, "checkout": h.view(s)}, nil
	})
}

func (h *CheckoutHandler) Sign(c *gin.Context) {
	var req checkout.SignatureInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid signature")
		return
	}
	req.Signature.SignerEmail = middleware.GetCustomer(c)

	h.withSession(c, func(s *checkout.Session) (any, error) {
		return nil, h.orch.CaptureSignature(s, req)
	})
}

// PlaceOrder places the order and ends the checkout session.
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	var req localeRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	locale := requestLocale(c, req.Locale)
	ctx := c.Request.Context()
	key := middleware.GetCustomer(c)

	s, err := h.sessions.Load(ctx, key)
	if err != nil {
		respondError(c, h.auth, err)
		return
	}

	res, err := h.orch.PlaceOrder(ctx, middleware.GetCommerceToken(c), s, locale)
	if err != nil {
		if saveErr := h.sessions.Save(ctx, key, s); saveErr != nil {
			logger.Error(ctx, "failed to save checkout session", "error", saveErr)
		}
		respondError(c, h.auth, err)
		return
	}

	if err := h.sessions.Clear(ctx, key); err != nil {
		logger.Warn(ctx, "failed to clear checkout session", "error", err)
	}
	c.JSON(http.StatusOK, res)
}
